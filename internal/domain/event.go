package domain

import (
	"context"
	"time"
)

// Event is a confirmed, calendar-visible booking of the venue.
// swagger:model Event
type Event struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	IsPrivate         bool       `json:"is_private"`
	EventType         EventType  `json:"event_type"`
	Location          *string    `json:"location,omitempty"`
	MaxParticipants   *int       `json:"max_participants,omitempty"`
	RequesterName     string     `json:"requester_name,omitempty"`
	RequesterEmail    string     `json:"requester_email,omitempty"`
	KeyHandoverAt     *time.Time `json:"key_handover_at,omitempty"`
	KeyReturnAt       *time.Time `json:"key_return_at,omitempty"`
	SignedContractRef *string    `json:"signed_contract_ref,omitempty"`
	LinkedRequestID   *string    `json:"linked_request_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(title string, start, end time.Time, isPrivate bool, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:     title,
		StartDate: start,
		EndDate:   end,
		IsPrivate: isPrivate,
		EventType: EventTypeFor(isPrivate),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Range returns the event's booked interval.
func (e *Event) Range() TimeRange {
	return TimeRange{ID: e.ID, Label: e.Title, Start: e.StartDate, End: e.EndDate}
}

// EventPatch holds optional changes for an admin edit. Nil fields are unchanged.
type EventPatch struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	IsPrivate   *bool
	Location    *string
}

// EventRepository defines the interface for confirmed event storage.
type EventRepository interface {
	// Create stores e and sets its ID. Returns ErrAlreadyExists if an event is already
	// linked to e.LinkedRequestID.
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetByLinkedRequestID(ctx context.Context, requestID string) (*Event, error)
	// Update persists every mutable field of e.
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string) error
	// ListOverlapping returns events whose [start, end) intersects [from, to), ordered by start.
	ListOverlapping(ctx context.Context, from, to time.Time) ([]*Event, error)
	// ListAll returns every confirmed event ordered by start.
	ListAll(ctx context.Context) ([]*Event, error)
}

// CalendarView is the calendar content for a window: confirmed events plus soft holds.
type CalendarView struct {
	From   time.Time         `json:"from"`
	To     time.Time         `json:"to"`
	Events []*Event          `json:"events"`
	Blocks []*TemporaryBlock `json:"blocks"`
}

// CalendarService covers admin-direct event management and calendar reads.
type CalendarService interface {
	CreateEvent(ctx context.Context, e *Event) error
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
	Calendar(ctx context.Context, from, to time.Time) (*CalendarView, error)
	ConfirmedEvents(ctx context.Context) ([]*Event, error)
}

// CalendarExporter renders confirmed events as an iCalendar document.
type CalendarExporter interface {
	Export(events []*Event) ([]byte, error)
}
