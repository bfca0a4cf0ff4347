package domain

import (
	"context"
	"time"
)

// TemporaryBlock is a soft, non-authoritative calendar hold kept while a request is
// pending approval. At most one exists per request.
// swagger:model TemporaryBlock
type TemporaryBlock struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"request_id"`
	Title           string    `json:"title"`
	RequesterName   string    `json:"requester_name"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	StageAtCreation Stage     `json:"stage_at_creation"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewTemporaryBlock returns the block for a request in a held stage. Coarse dates are
// inclusive calendar days, so the block runs to the end of the request's last day in loc.
func NewTemporaryBlock(r *EventRequest, loc *time.Location, createdAt time.Time) *TemporaryBlock {
	return &TemporaryBlock{
		RequestID:       r.ID,
		Title:           r.Title,
		RequesterName:   r.RequesterName,
		StartDate:       r.StartDate,
		EndDate:         EndOfDay(r.EndDate, loc),
		StageAtCreation: r.Stage,
		CreatedAt:       createdAt,
	}
}

// EndOfDay returns the midnight that closes t's calendar day in loc (UTC when nil).
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// TemporaryBlockRepository defines the interface for temporary block storage.
type TemporaryBlockRepository interface {
	// Create stores b and sets its ID. Returns ErrAlreadyExists if the request already has a block.
	Create(ctx context.Context, b *TemporaryBlock) error
	ListByRequestID(ctx context.Context, requestID string) ([]*TemporaryBlock, error)
	// DeleteByRequestID removes every block for the request and returns how many were removed.
	DeleteByRequestID(ctx context.Context, requestID string) (int, error)
	ListOverlapping(ctx context.Context, from, to time.Time) ([]*TemporaryBlock, error)
	ListAll(ctx context.Context) ([]*TemporaryBlock, error)
}

// ReconcileReport summarizes a full blocker sweep.
type ReconcileReport struct {
	Created  int `json:"created"`
	Released int `json:"released"`
	Failed   int `json:"failed"`
}

// BlockerReconciler keeps TemporaryBlocks in 1:1 correspondence with held requests.
type BlockerReconciler interface {
	// EnsureBlock creates a block for r if r is in a held stage and has none. Idempotent.
	EnsureBlock(ctx context.Context, r *EventRequest) error
	// ReleaseBlock deletes any block for requestID. Absent blocks are not an error.
	ReleaseBlock(ctx context.Context, requestID string) error
	// Reconcile repairs drift across all requests and blocks.
	Reconcile(ctx context.Context) (ReconcileReport, error)
}
