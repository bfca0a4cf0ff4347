package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"venuebooking/internal/domain"

	"github.com/lib/pq"
)

const eventColumns = `id, title, description, start_date, end_date, is_private, event_type,
		location, max_participants, requester_name, requester_email, key_handover_at, key_return_at,
		signed_contract_ref, linked_request_id, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, start_date, end_date, is_private, event_type,
			location, max_participants, requester_name, requester_email, key_handover_at, key_return_at,
			signed_contract_ref, linked_request_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartDate, e.EndDate, e.IsPrivate, e.EventType,
		e.Location, e.MaxParticipants, e.RequesterName, e.RequesterEmail, e.KeyHandoverAt, e.KeyReturnAt,
		e.SignedContractRef, e.LinkedRequestID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.getOne(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

func (r *eventRepository) GetByLinkedRequestID(ctx context.Context, requestID string) (*domain.Event, error) {
	return r.getOne(ctx, `SELECT `+eventColumns+` FROM events WHERE linked_request_id = $1`, requestID)
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET
			title = $2, description = $3, start_date = $4, end_date = $5, is_private = $6,
			event_type = $7, location = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.StartDate, e.EndDate, e.IsPrivate, e.EventType, e.Location, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE start_date < $2 AND end_date > $1
		ORDER BY start_date, id
	`
	return r.list(ctx, query, from, to)
}

func (r *eventRepository) ListAll(ctx context.Context) ([]*domain.Event, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_date, id`)
}

func (r *eventRepository) getOne(ctx context.Context, query string, arg string) (*domain.Event, error) {
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var (
		description, location, requesterName, requesterEmail, contract, linked sql.NullString
		maxParticipants                                                        sql.NullInt64
		handover, keyReturn                                                    sql.NullTime
		eventType                                                              string
	)
	err := row.Scan(
		&e.ID, &e.Title, &description, &e.StartDate, &e.EndDate, &e.IsPrivate, &eventType,
		&location, &maxParticipants, &requesterName, &requesterEmail, &handover, &keyReturn,
		&contract, &linked, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.EventType = domain.EventTypeFor(e.IsPrivate)
	if t, ok := domain.ParseEventType(eventType); ok {
		e.EventType = t
	}
	e.Description = description.String
	e.RequesterName = requesterName.String
	e.RequesterEmail = requesterEmail.String
	e.Location = nullString(location)
	e.SignedContractRef = nullString(contract)
	e.LinkedRequestID = nullString(linked)
	if maxParticipants.Valid {
		n := int(maxParticipants.Int64)
		e.MaxParticipants = &n
	}
	e.KeyHandoverAt = nullTime(handover)
	e.KeyReturnAt = nullTime(keyReturn)
	return e, nil
}

func isUniqueViolation(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && perr.Code == "23505"
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
