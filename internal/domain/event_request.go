package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// EventRequest is a requester's application to book the venue. Its Stage is the single
// authoritative lifecycle field; Status is derived from it.
// swagger:model EventRequest
type EventRequest struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	RequesterPhone *string   `json:"requester_phone,omitempty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsPrivate      bool      `json:"is_private"`
	EventType      EventType `json:"event_type"`
	Stage          Stage     `json:"stage"`

	ExactStart        *time.Time `json:"exact_start,omitempty"`
	ExactEnd          *time.Time `json:"exact_end,omitempty"`
	KeyHandoverAt     *time.Time `json:"key_handover_at,omitempty"`
	KeyReturnAt       *time.Time `json:"key_return_at,omitempty"`
	Location          *string    `json:"location,omitempty"`
	MaxParticipants   *int       `json:"max_participants,omitempty"`
	AdditionalNotes   *string    `json:"additional_notes,omitempty"`
	SignedContractRef *string    `json:"signed_contract_ref,omitempty"`

	AdminNotes      *string `json:"admin_notes,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`

	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	InitialAcceptedAt  *time.Time `json:"initial_accepted_at,omitempty"`
	DetailsSubmittedAt *time.Time `json:"details_submitted_at,omitempty"`
	FinalAcceptedAt    *time.Time `json:"final_accepted_at,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

// Status returns the legacy status mirror derived from Stage.
func (r *EventRequest) Status() Status {
	return r.Stage.Status()
}

// MarshalJSON adds the derived status to the serialized request.
func (r EventRequest) MarshalJSON() ([]byte, error) {
	type alias EventRequest
	return json.Marshal(struct {
		alias
		Status Status `json:"status"`
	}{alias(r), r.Stage.Status()})
}

// IsOwner reports whether email belongs to the requester (case-insensitive).
func (r *EventRequest) IsOwner(email string) bool {
	return email != "" && equalFoldTrim(r.RequesterEmail, email)
}

// BookedRange returns the range the request would occupy once confirmed: the exact
// times when present, otherwise the coarse dates.
func (r *EventRequest) BookedRange() TimeRange {
	tr := TimeRange{ID: r.ID, Label: r.Title, Start: r.StartDate, End: r.EndDate}
	if r.ExactStart != nil && r.ExactEnd != nil {
		tr.Start, tr.End = *r.ExactStart, *r.ExactEnd
	}
	return tr
}

// Materialize builds the confirmed Event for a request at final acceptance.
func (r *EventRequest) Materialize(now time.Time) *Event {
	booked := r.BookedRange()
	description := r.Description
	if r.AdditionalNotes != nil && *r.AdditionalNotes != "" {
		description = *r.AdditionalNotes
	}
	id := r.ID
	return &Event{
		Title:             r.Title,
		Description:       description,
		StartDate:         booked.Start,
		EndDate:           booked.End,
		IsPrivate:         r.IsPrivate,
		EventType:         r.EventType,
		Location:          r.Location,
		MaxParticipants:   r.MaxParticipants,
		RequesterName:     r.RequesterName,
		RequesterEmail:    r.RequesterEmail,
		KeyHandoverAt:     r.KeyHandoverAt,
		KeyReturnAt:       r.KeyReturnAt,
		SignedContractRef: r.SignedContractRef,
		LinkedRequestID:   &id,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// InitialRequestInput is the requester's first submission.
type InitialRequestInput struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	RequesterPhone string    `json:"requester_phone"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsPrivate      bool      `json:"is_private"`
	EventType      string    `json:"event_type"`
}

// DetailsInput is the requester's second submission after initial acceptance.
// Exact datetimes are raw strings so parse failures surface as validation errors.
type DetailsInput struct {
	ExactStart        string `json:"exact_start"`
	ExactEnd          string `json:"exact_end"`
	KeyHandoverAt     string `json:"key_handover_at"`
	KeyReturnAt       string `json:"key_return_at"`
	SignedContractRef string `json:"signed_contract_ref"`
	Location          string `json:"location"`
	MaxParticipants   *int   `json:"max_participants"`
	AdditionalNotes   string `json:"additional_notes"`
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	Stage          *Stage
	RequesterEmail string
	Pagination     PaginationParams
}

// EventRequestRepository defines the interface for event request storage.
type EventRequestRepository interface {
	Create(ctx context.Context, r *EventRequest) error
	GetByID(ctx context.Context, id string) (*EventRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*EventRequest, int, error)
	ListByStages(ctx context.Context, stages []Stage) ([]*EventRequest, error)
	// Transition persists r (including its new Stage) only if the stored stage still
	// equals from. Returns ErrStageChanged otherwise, ErrNotFound if the row is gone.
	Transition(ctx context.Context, r *EventRequest, from Stage) error
}

// RequestLifecycleService owns every stage transition of an EventRequest.
type RequestLifecycleService interface {
	SubmitInitial(ctx context.Context, in InitialRequestInput) (*EventRequest, error)
	AcceptInitial(ctx context.Context, id, adminNotes string) (*EventRequest, error)
	Reject(ctx context.Context, id, reason string) (*EventRequest, error)
	// Cancel cancels the request on behalf of callerEmail, which must be the requester.
	Cancel(ctx context.Context, id, callerEmail string) (*EventRequest, error)
	SubmitDetails(ctx context.Context, id string, details DetailsInput) (*EventRequest, error)
	FinalAccept(ctx context.Context, id string) (*EventRequest, error)
	GetRequest(ctx context.Context, id string) (*EventRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*EventRequest, int, error)
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
