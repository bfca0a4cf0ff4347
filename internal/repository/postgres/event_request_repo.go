package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"venuebooking/internal/domain"

	"github.com/lib/pq"
)

const eventRequestColumns = `id, title, description, requester_name, requester_email, requester_phone,
		start_date, end_date, is_private, event_type, request_stage,
		exact_start, exact_end, key_handover_at, key_return_at, location, max_participants,
		additional_notes, signed_contract_ref, admin_notes, rejection_reason,
		created_at, updated_at, initial_accepted_at, details_submitted_at, final_accepted_at,
		rejected_at, cancelled_at`

type eventRequestRepository struct {
	DB *sql.DB
}

func NewEventRequestRepository(db *sql.DB) domain.EventRequestRepository {
	return &eventRequestRepository{
		DB: db,
	}
}

// Create inserts r in its current stage. The status column mirrors the stage for
// consumers that still read it.
func (r *eventRequestRepository) Create(ctx context.Context, req *domain.EventRequest) error {
	query := `
		INSERT INTO event_requests (title, description, requester_name, requester_email, requester_phone,
			start_date, end_date, is_private, event_type, request_stage, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		req.Title, req.Description, req.RequesterName, req.RequesterEmail, req.RequesterPhone,
		req.StartDate, req.EndDate, req.IsPrivate, req.EventType, req.Stage, req.Stage.Status(),
		req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
}

func (r *eventRequestRepository) GetByID(ctx context.Context, id string) (*domain.EventRequest, error) {
	query := `SELECT ` + eventRequestColumns + ` FROM event_requests WHERE id = $1`
	req, err := scanEventRequest(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *eventRequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.EventRequest, int, error) {
	var where []string
	var args []interface{}
	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		where = append(where, fmt.Sprintf("request_stage = $%d", len(args)))
	}
	if filter.RequesterEmail != "" {
		args = append(args, filter.RequesterEmail)
		where = append(where, fmt.Sprintf("requester_email = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_requests`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventRequestColumns + ` FROM event_requests` + clause + ` ORDER BY created_at DESC, id`
	if p := filter.Pagination; p.PageSize > 0 {
		args = append(args, p.PageSize, p.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *eventRequestRepository) ListByStages(ctx context.Context, stages []domain.Stage) ([]*domain.EventRequest, error) {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	query := `SELECT ` + eventRequestColumns + ` FROM event_requests WHERE request_stage = ANY($1) ORDER BY created_at`
	return r.query(ctx, query, pq.Array(names))
}

// Transition writes every mutable column of req, guarded by the stored stage still being from.
func (r *eventRequestRepository) Transition(ctx context.Context, req *domain.EventRequest, from domain.Stage) error {
	query := `
		UPDATE event_requests SET
			request_stage = $3, status = $4,
			exact_start = $5, exact_end = $6, key_handover_at = $7, key_return_at = $8,
			location = $9, max_participants = $10, additional_notes = $11, signed_contract_ref = $12,
			admin_notes = $13, rejection_reason = $14, updated_at = $15,
			initial_accepted_at = $16, details_submitted_at = $17, final_accepted_at = $18,
			rejected_at = $19, cancelled_at = $20
		WHERE id = $1 AND request_stage = $2
	`
	result, err := r.DB.ExecContext(ctx, query,
		req.ID, from, req.Stage, req.Stage.Status(),
		req.ExactStart, req.ExactEnd, req.KeyHandoverAt, req.KeyReturnAt,
		req.Location, req.MaxParticipants, req.AdditionalNotes, req.SignedContractRef,
		req.AdminNotes, req.RejectionReason, req.UpdatedAt,
		req.InitialAcceptedAt, req.DetailsSubmittedAt, req.FinalAcceptedAt,
		req.RejectedAt, req.CancelledAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	// Distinguish a missing row from a lost check-and-set.
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM event_requests WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrStageChanged
}

func (r *eventRequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.EventRequest, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.EventRequest, 0)
	for rows.Next() {
		req, err := scanEventRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRequest(row rowScanner) (*domain.EventRequest, error) {
	req := &domain.EventRequest{}
	var (
		description, phone, location, notes, contract, adminNotes, reason sql.NullString
		maxParticipants                                                   sql.NullInt64
		exactStart, exactEnd, handover, keyReturn                         sql.NullTime
		initialAccepted, detailsSubmitted, finalAccepted                  sql.NullTime
		rejected, cancelled                                               sql.NullTime
		eventType, stage                                                  string
	)
	err := row.Scan(
		&req.ID, &req.Title, &description, &req.RequesterName, &req.RequesterEmail, &phone,
		&req.StartDate, &req.EndDate, &req.IsPrivate, &eventType, &stage,
		&exactStart, &exactEnd, &handover, &keyReturn, &location, &maxParticipants,
		&notes, &contract, &adminNotes, &reason,
		&req.CreatedAt, &req.UpdatedAt, &initialAccepted, &detailsSubmitted, &finalAccepted,
		&rejected, &cancelled,
	)
	if err != nil {
		return nil, err
	}

	parsed, ok := domain.ParseStage(stage)
	if !ok {
		return nil, fmt.Errorf("event request %s: unknown stage %q", req.ID, stage)
	}
	req.Stage = parsed
	req.EventType = domain.EventTypeFor(req.IsPrivate)
	if t, ok := domain.ParseEventType(eventType); ok {
		req.EventType = t
	}
	req.Description = description.String
	req.RequesterPhone = nullString(phone)
	req.Location = nullString(location)
	req.AdditionalNotes = nullString(notes)
	req.SignedContractRef = nullString(contract)
	req.AdminNotes = nullString(adminNotes)
	req.RejectionReason = nullString(reason)
	if maxParticipants.Valid {
		n := int(maxParticipants.Int64)
		req.MaxParticipants = &n
	}
	req.ExactStart = nullTime(exactStart)
	req.ExactEnd = nullTime(exactEnd)
	req.KeyHandoverAt = nullTime(handover)
	req.KeyReturnAt = nullTime(keyReturn)
	req.InitialAcceptedAt = nullTime(initialAccepted)
	req.DetailsSubmittedAt = nullTime(detailsSubmitted)
	req.FinalAcceptedAt = nullTime(finalAccepted)
	req.RejectedAt = nullTime(rejected)
	req.CancelledAt = nullTime(cancelled)
	return req, nil
}
