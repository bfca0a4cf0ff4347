package postgres

import (
	"context"
	"database/sql"
	"time"

	"venuebooking/internal/domain"
)

const temporaryBlockColumns = `id, request_id, title, requester_name, start_date, end_date, stage_at_creation, created_at`

type temporaryBlockRepository struct {
	DB *sql.DB
}

func NewTemporaryBlockRepository(db *sql.DB) domain.TemporaryBlockRepository {
	return &temporaryBlockRepository{
		DB: db,
	}
}

func (r *temporaryBlockRepository) Create(ctx context.Context, b *domain.TemporaryBlock) error {
	query := `
		INSERT INTO temporarily_blocked_dates (request_id, title, requester_name, start_date, end_date, stage_at_creation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		b.RequestID, b.Title, b.RequesterName, b.StartDate, b.EndDate, b.StageAtCreation, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *temporaryBlockRepository) ListByRequestID(ctx context.Context, requestID string) ([]*domain.TemporaryBlock, error) {
	query := `SELECT ` + temporaryBlockColumns + ` FROM temporarily_blocked_dates WHERE request_id = $1`
	return r.list(ctx, query, requestID)
}

func (r *temporaryBlockRepository) DeleteByRequestID(ctx context.Context, requestID string) (int, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM temporarily_blocked_dates WHERE request_id = $1`, requestID)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (r *temporaryBlockRepository) ListOverlapping(ctx context.Context, from, to time.Time) ([]*domain.TemporaryBlock, error) {
	query := `
		SELECT ` + temporaryBlockColumns + `
		FROM temporarily_blocked_dates
		WHERE start_date < $2 AND end_date > $1
		ORDER BY start_date, id
	`
	return r.list(ctx, query, from, to)
}

func (r *temporaryBlockRepository) ListAll(ctx context.Context) ([]*domain.TemporaryBlock, error) {
	return r.list(ctx, `SELECT `+temporaryBlockColumns+` FROM temporarily_blocked_dates ORDER BY start_date, id`)
}

func (r *temporaryBlockRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.TemporaryBlock, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := make([]*domain.TemporaryBlock, 0)
	for rows.Next() {
		b := &domain.TemporaryBlock{}
		var stage string
		if err := rows.Scan(&b.ID, &b.RequestID, &b.Title, &b.RequesterName, &b.StartDate, &b.EndDate, &stage, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.StageAtCreation = domain.Stage(stage)
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
