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

// Labels shown to the public instead of private or pending bookings.
const (
	privateEventTitle = "Privates Event"
	heldBlockTitle    = "Vorgemerkt"
)

// defaultCalendarWindow is used when GET /calendar omits "to".
const defaultCalendarWindow = 90 * 24 * time.Hour

// CreateEventBody is the request body for POST /events.
type CreateEventBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	IsPrivate   bool   `json:"is_private"`
	Location    string `json:"location"`
}

// Validate implements Validator.
func (b CreateEventBody) Validate() []string {
	var errs []string
	if strings.TrimSpace(b.Title) == "" {
		errs = append(errs, "title is required")
	}
	if strings.TrimSpace(b.StartDate) == "" || strings.TrimSpace(b.EndDate) == "" {
		errs = append(errs, "start_date and end_date are required")
	}
	return errs
}

// UpdateEventBody is the request body for PATCH /events/{id}. All fields optional; omitted fields are unchanged.
type UpdateEventBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	IsPrivate   *bool   `json:"is_private"`
	Location    *string `json:"location"`
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CalendarSuccessResponse is the success response envelope for GET /calendar.
type CalendarSuccessResponse struct {
	Data  *domain.CalendarView `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type CalendarController struct {
	Logger   *slog.Logger
	Service  domain.CalendarService
	Exporter domain.CalendarExporter
	Location *time.Location
	now      func() time.Time
}

func NewCalendarController(logger *slog.Logger, svc domain.CalendarService, exporter domain.CalendarExporter, loc *time.Location) *CalendarController {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarController{
		Logger:   logger,
		Service:  svc,
		Exporter: exporter,
		Location: loc,
		now:      time.Now,
	}
}

// Calendar godoc
// @Summary Calendar view
// @Description Confirmed events and temporary holds intersecting [from, to). Private event details and hold owners are only shown to admins.
// @Tags calendar
// @Produce json
// @Param from query string false "Window start, YYYY-MM-DD or RFC 3339 (default: today)"
// @Param to query string false "Window end, YYYY-MM-DD or RFC 3339 (default: from + 90 days)"
// @Success 200 {object} controllers.CalendarSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 503 {object} helpers.APIResponse "error.code: store_unavailable"
// @Router /calendar [get]
func (c *CalendarController) Calendar(w http.ResponseWriter, r *http.Request) {
	from, to, ok := c.window(w, r)
	if !ok {
		return
	}
	view, err := c.Service.Calendar(r.Context(), from, to)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if p, ok := middleware.PrincipalFromContext(r.Context()); !ok || !p.IsAdmin() {
		view = maskCalendar(view)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

func (c *CalendarController) window(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	now := c.now().In(c.Location)
	from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.Location)
	if s := q.Get("from"); s != "" {
		t, err := parseDateOrTime(s, c.Location)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "from: "+err.Error())
			return from, to, false
		}
		from = t
	}
	to = from.Add(defaultCalendarWindow)
	if s := q.Get("to"); s != "" {
		t, err := parseDateOrTime(s, c.Location)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "to: "+err.Error())
			return from, to, false
		}
		to = t
	}
	return from, to, true
}

// maskCalendar returns a copy of view without private event content and hold owners.
func maskCalendar(view *domain.CalendarView) *domain.CalendarView {
	masked := &domain.CalendarView{
		From:   view.From,
		To:     view.To,
		Events: make([]*domain.Event, 0, len(view.Events)),
		Blocks: make([]*domain.TemporaryBlock, 0, len(view.Blocks)),
	}
	for _, e := range view.Events {
		cp := *e
		cp.RequesterName, cp.RequesterEmail = "", ""
		cp.KeyHandoverAt, cp.KeyReturnAt = nil, nil
		cp.SignedContractRef, cp.LinkedRequestID = nil, nil
		if cp.IsPrivate {
			cp.Title = privateEventTitle
			cp.Description = ""
			cp.Location, cp.MaxParticipants = nil, nil
		}
		masked.Events = append(masked.Events, &cp)
	}
	for _, b := range view.Blocks {
		masked.Blocks = append(masked.Blocks, &domain.TemporaryBlock{
			ID:              b.ID,
			Title:           heldBlockTitle,
			StartDate:       b.StartDate,
			EndDate:         b.EndDate,
			StageAtCreation: b.StageAtCreation,
			CreatedAt:       b.CreatedAt,
		})
	}
	return masked
}

// ExportICS godoc
// @Summary iCalendar feed
// @Description All confirmed events as text/calendar. Private events appear as "Privates Event".
// @Tags calendar
// @Produce text/calendar
// @Success 200 {string} string "iCalendar document"
// @Failure 503 {object} helpers.APIResponse "error.code: store_unavailable"
// @Router /calendar.ics [get]
func (c *CalendarController) ExportICS(w http.ResponseWriter, r *http.Request) {
	events, err := c.Service.ConfirmedEvents(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	feed, err := c.Exporter.Export(events)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(feed)
}

// CreateEvent godoc
// @Summary Create an event directly
// @Description Admin-entered confirmed booking. Rejected with 409 when it overlaps another confirmed event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventBody true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (data lists conflicting bookings)"
// @Router /events [post]
func (c *CalendarController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var body CreateEventBody
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
	now := c.now()
	event := domain.NewEvent(strings.TrimSpace(body.Title), start, end, body.IsPrivate, now, now)
	event.Description = strings.TrimSpace(body.Description)
	if loc := strings.TrimSpace(body.Location); loc != "" {
		event.Location = &loc
	}
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partial update of a confirmed event. A new time range is checked against all other confirmed events.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Param body body UpdateEventBody true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{id} [patch]
func (c *CalendarController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body UpdateEventBody
	if !helpers.DecodeAndValidate(w, r, &body) {
		return
	}
	patch := domain.EventPatch{
		Title:       body.Title,
		Description: body.Description,
		IsPrivate:   body.IsPrivate,
		Location:    body.Location,
	}
	for _, f := range []struct {
		name string
		raw  *string
		dst  **time.Time
	}{
		{"start_date", body.StartDate, &patch.StartDate},
		{"end_date", body.EndDate, &patch.EndDate},
	} {
		if f.raw == nil {
			continue
		}
		t, err := parseDateOrTime(*f.raw, c.Location)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, f.name+": "+err.Error())
			return
		}
		*f.dst = &t
	}
	event, err := c.Service.UpdateEvent(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags events
// @Security BearerAuth
// @Param id path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{id} [delete]
func (c *CalendarController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
