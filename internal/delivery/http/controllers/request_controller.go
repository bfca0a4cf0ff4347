package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"venuebooking/internal/delivery/http/helpers"
	"venuebooking/internal/delivery/http/middleware"
	"venuebooking/internal/domain"
)

// SubmitRequestBody is the request body for POST /requests. Dates accept YYYY-MM-DD
// (venue-local midnight) or RFC 3339.
type SubmitRequestBody struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	RequesterPhone string `json:"requester_phone"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	IsPrivate      bool   `json:"is_private"`
	EventType      string `json:"event_type"`
}

// Validate implements Validator. Field content rules are enforced by the lifecycle service.
func (b SubmitRequestBody) Validate() []string {
	var errs []string
	if strings.TrimSpace(b.StartDate) == "" {
		errs = append(errs, "start_date is required")
	}
	if strings.TrimSpace(b.EndDate) == "" {
		errs = append(errs, "end_date is required")
	}
	return errs
}

// AcceptInitialBody is the optional request body for POST /requests/{id}/accept-initial.
type AcceptInitialBody struct {
	AdminNotes string `json:"admin_notes"`
}

// RejectBody is the request body for POST /requests/{id}/reject.
type RejectBody struct {
	Reason string `json:"reason"`
}

// Validate implements Validator.
func (b RejectBody) Validate() []string {
	if strings.TrimSpace(b.Reason) == "" {
		return []string{"reason is required"}
	}
	return nil
}

// SubmitDetailsBody is the request body for POST /requests/{id}/details.
type SubmitDetailsBody struct {
	ExactStart        string `json:"exact_start"`
	ExactEnd          string `json:"exact_end"`
	KeyHandoverAt     string `json:"key_handover_at"`
	KeyReturnAt       string `json:"key_return_at"`
	SignedContractRef string `json:"signed_contract_ref"`
	Location          string `json:"location"`
	MaxParticipants   *int   `json:"max_participants"`
	AdditionalNotes   string `json:"additional_notes"`
}

// RequestSuccessResponse is the success response envelope for single-request endpoints.
type RequestSuccessResponse struct {
	Data  *domain.EventRequest `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// RequestListSuccessResponse is the success response envelope for request listings.
type RequestListSuccessResponse struct {
	Data  helpers.Page[*domain.EventRequest] `json:"data"`
	Error *helpers.APIError                  `json:"error"`
}

type RequestController struct {
	Logger   *slog.Logger
	Service  domain.RequestLifecycleService
	Location *time.Location
}

func NewRequestController(logger *slog.Logger, svc domain.RequestLifecycleService, loc *time.Location) *RequestController {
	if loc == nil {
		loc = time.UTC
	}
	return &RequestController{
		Logger:   logger,
		Service:  svc,
		Location: loc,
	}
}

// SubmitInitial godoc
// @Summary Submit a booking request
// @Description Creates an event request in stage initial and notifies the admins. Limited per requester email.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body SubmitRequestBody true "Requested date range and contact data"
// @Success 201 {object} controllers.RequestSuccessResponse "data contains the created request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 429 {object} helpers.APIResponse "error.code: rate_limited"
// @Failure 503 {object} helpers.APIResponse "error.code: store_unavailable"
// @Router /requests [post]
func (c *RequestController) SubmitInitial(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequestBody
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	start, err := parseDateOrTime(body.StartDate, c.Location)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "start_date: "+err.Error())
		return
	}
	end, err := parseDateOrTime(body.EndDate, c.Location)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "end_date: "+err.Error())
		return
	}
	req, err := c.Service.SubmitInitial(r.Context(), domain.InitialRequestInput{
		Title:          body.Title,
		Description:    body.Description,
		RequesterName:  body.RequesterName,
		RequesterEmail: body.RequesterEmail,
		RequesterPhone: body.RequesterPhone,
		StartDate:      start,
		EndDate:        end,
		IsPrivate:      body.IsPrivate,
		EventType:      body.EventType,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, req)
}

// ListRequests godoc
// @Summary List booking requests
// @Description Admin listing, newest first, optionally filtered by stage and requester email.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param stage query string false "Stage filter" Enums(initial, initial_accepted, details_submitted, final_accepted, rejected, cancelled)
// @Param email query string false "Requester email filter"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /requests [get]
func (c *RequestController) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter := domain.RequestFilter{
		RequesterEmail: r.URL.Query().Get("email"),
		Pagination:     helpers.ParsePagination(r),
	}
	if s := r.URL.Query().Get("stage"); s != "" {
		stage, ok := domain.ParseStage(s)
		if !ok {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unknown stage "+s)
			return
		}
		filter.Stage = &stage
	}
	c.writeList(w, r, filter)
}

// ListMyRequests godoc
// @Summary List my booking requests
// @Description Requests submitted with the authenticated caller's email, newest first.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/requests [get]
func (c *RequestController) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	c.writeList(w, r, domain.RequestFilter{
		RequesterEmail: p.Email,
		Pagination:     helpers.ParsePagination(r),
	})
}

func (c *RequestController) writeList(w http.ResponseWriter, r *http.Request, filter domain.RequestFilter) {
	items, total, err := c.Service.ListRequests(r.Context(), filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.Page[*domain.EventRequest]{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(filter.Pagination, total),
	})
}

// GetRequest godoc
// @Summary Get a booking request
// @Description Visible to the requester and to admins.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /requests/{id} [get]
func (c *RequestController) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := c.loadVisible(w, r)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, req)
}

// AcceptInitial godoc
// @Summary Accept a request initially
// @Description Moves the request from initial to initial_accepted and places a temporary hold on the calendar.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID (UUID)"
// @Param body body AcceptInitialBody false "Optional notes for the requester"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_stage"
// @Router /requests/{id}/accept-initial [post]
func (c *RequestController) AcceptInitial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body AcceptInitialBody
	if !helpers.DecodeOptionalAndValidate(w, r, &body) {
		return
	}
	req, err := c.Service.AcceptInitial(r.Context(), id, body.AdminNotes)
	c.writeResult(w, r, req, err)
}

// Reject godoc
// @Summary Reject a request
// @Description Rejects a non-terminal request with a reason and releases its calendar hold.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID (UUID)"
// @Param body body RejectBody true "Rejection reason"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_stage"
// @Router /requests/{id}/reject [post]
func (c *RequestController) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body RejectBody
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	req, err := c.Service.Reject(r.Context(), id, body.Reason)
	c.writeResult(w, r, req, err)
}

// Cancel godoc
// @Summary Cancel my request
// @Description The requester withdraws a non-terminal request; its calendar hold is released.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the requester)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_stage"
// @Router /requests/{id}/cancel [post]
func (c *RequestController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	req, err := c.Service.Cancel(r.Context(), id, p.Email)
	c.writeResult(w, r, req, err)
}

// SubmitDetails godoc
// @Summary Submit event details
// @Description The requester submits exact times and the signed contract after initial acceptance. Rejected with 409 when the exact times collide with a confirmed booking.
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID (UUID)"
// @Param body body SubmitDetailsBody true "Exact times and contract reference"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the requester)"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_stage or conflict (data lists conflicting bookings)"
// @Router /requests/{id}/details [post]
func (c *RequestController) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	var body SubmitDetailsBody
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	existing, ok := c.loadVisible(w, r)
	if !ok {
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	if !existing.IsOwner(p.Email) {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "only the requester can submit details")
		return
	}
	req, err := c.Service.SubmitDetails(r.Context(), existing.ID, domain.DetailsInput{
		ExactStart:        body.ExactStart,
		ExactEnd:          body.ExactEnd,
		KeyHandoverAt:     body.KeyHandoverAt,
		KeyReturnAt:       body.KeyReturnAt,
		SignedContractRef: body.SignedContractRef,
		Location:          body.Location,
		MaxParticipants:   body.MaxParticipants,
		AdditionalNotes:   body.AdditionalNotes,
	})
	c.writeResult(w, r, req, err)
}

// FinalAccept godoc
// @Summary Confirm a request
// @Description Re-checks conflicts, creates the confirmed calendar event and releases the temporary hold.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID (UUID)"
// @Success 200 {object} controllers.RequestSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: invalid_stage or conflict (data lists conflicting bookings)"
// @Failure 503 {object} helpers.APIResponse "error.code: store_unavailable"
// @Router /requests/{id}/final-accept [post]
func (c *RequestController) FinalAccept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := c.Service.FinalAccept(r.Context(), id)
	c.writeResult(w, r, req, err)
}

// loadVisible fetches the request named in the path and checks the caller may see it.
func (c *RequestController) loadVisible(w http.ResponseWriter, r *http.Request) (*domain.EventRequest, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	req, err := c.Service.GetRequest(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return nil, false
	}
	if !p.IsAdmin() && !req.IsOwner(p.Email) {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
		return nil, false
	}
	return req, true
}

func (c *RequestController) writeResult(w http.ResponseWriter, r *http.Request, req *domain.EventRequest, err error) {
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, req)
}
