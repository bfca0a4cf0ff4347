package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"venuebooking/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var eventColumnNames = []string{
	"id", "title", "description", "start_date", "end_date", "is_private", "event_type",
	"location", "max_participants", "requester_name", "requester_email", "key_handover_at", "key_return_at",
	"signed_contract_ref", "linked_request_id", "created_at", "updated_at",
}

func TestEventRepository_Create(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	linked := "req-1"
	contract := "vertrag-17"

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  string
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events \(title, description, start_date, end_date, is_private, event_type`).
					WithArgs("Sommerfest", "", start, end, true, "Private",
						nil, nil, "Erika Mustermann", "erika@example.de", nil, nil,
						"vertrag-17", "req-1", may20, may20).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-uuid-1"))
			},
			wantID: "ev-uuid-1",
		},
		{
			name: "already materialized",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "events_linked_request_id_key"})
			},
			wantErr: domain.ErrAlreadyExists,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO events`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			e := &domain.Event{
				Title: "Sommerfest", StartDate: start, EndDate: end, IsPrivate: true, EventType: domain.EventTypePrivate,
				RequesterName: "Erika Mustermann", RequesterEmail: "erika@example.de",
				SignedContractRef: &contract, LinkedRequestID: &linked, CreatedAt: may20, UpdatedAt: may20,
			}
			err = NewEventRepository(db).Create(ctx, e)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, e.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_GetByLinkedRequestID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.Event
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM events WHERE linked_request_id = \$1`).
					WithArgs("req-1").
					WillReturnRows(sqlmock.NewRows(eventColumnNames).AddRow(
						"ev-1", "Sommerfest", "Gartenfeier", jun1, jun3, true, "Privates Event",
						nil, int64(40), "Erika Mustermann", "erika@example.de", nil, nil,
						"vertrag-17", "req-1", may20, may20,
					))
			},
			want: func() *domain.Event {
				capacity, contract, linked := 40, "vertrag-17", "req-1"
				return &domain.Event{
					ID: "ev-1", Title: "Sommerfest", Description: "Gartenfeier", StartDate: jun1, EndDate: jun3,
					IsPrivate: true, EventType: domain.EventTypePrivate, MaxParticipants: &capacity,
					RequesterName: "Erika Mustermann", RequesterEmail: "erika@example.de",
					SignedContractRef: &contract, LinkedRequestID: &linked, CreatedAt: may20, UpdatedAt: may20,
				}
			}(),
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM events WHERE linked_request_id = \$1`).
					WithArgs("req-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewEventRepository(db).GetByLinkedRequestID(ctx, "req-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_ListOverlapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 10, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE start_date < \$2 AND end_date > \$1 ORDER BY start_date, id`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows(eventColumnNames).AddRow(
			"ev-1", "Hochzeit", nil, time.Date(2025, 7, 10, 10, 0, 0, 0, time.UTC), time.Date(2025, 7, 10, 18, 0, 0, 0, time.UTC), false, "",
			"Garten", nil, nil, nil, nil, nil,
			nil, nil, may20, may20,
		))

	got, err := NewEventRepository(db).ListOverlapping(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Hochzeit", got[0].Title)
	require.Equal(t, domain.EventTypePublic, got[0].EventType)
	require.Equal(t, "Garten", *got[0].Location)
	require.Nil(t, got[0].LinkedRequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListAllEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM events ORDER BY start_date, id`).WillReturnRows(sqlmock.NewRows(eventColumnNames))

	got, err := NewEventRepository(db).ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []*domain.Event{}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_Update(t *testing.T) {
	ctx := context.Background()
	e := &domain.Event{
		ID: "ev-1", Title: "Konzert", StartDate: jun1, EndDate: jun3,
		EventType: domain.EventTypePublic, UpdatedAt: may20,
	}

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"success", 1, nil},
		{"not found", 0, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE events SET`).
				WithArgs("ev-1", "Konzert", "", jun1, jun3, false, "Public", nil, may20).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = NewEventRepository(db).Update(ctx, e)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).WithArgs("ev-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewEventRepository(db).Delete(ctx, "ev-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepository_RowsAffectedError(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEventRepository(db)

	mock.ExpectExec(`UPDATE events SET`).WillReturnResult(sqlmock.NewErrorResult(driver.ErrBadConn))
	mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).WithArgs("ev-1").
		WillReturnResult(sqlmock.NewErrorResult(driver.ErrBadConn))

	err = repo.Update(ctx, &domain.Event{ID: "ev-1", Title: "Konzert", StartDate: jun1, EndDate: jun3})
	require.ErrorIs(t, err, driver.ErrBadConn)
	require.ErrorIs(t, repo.Delete(ctx, "ev-1"), driver.ErrBadConn)
	require.NoError(t, mock.ExpectationsWereMet())
}
