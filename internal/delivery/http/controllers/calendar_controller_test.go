package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"venuebooking/internal/delivery/http/helpers"
	"venuebooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventID = "0b8e4c1f-7d2a-4e6b-8c3d-9a1b2c3d4e5f"

// fakeCalendarService implements domain.CalendarService for handler tests.
type fakeCalendarService struct {
	err       error
	view      *domain.CalendarView
	events    []*domain.Event
	updated   *domain.Event
	lastEvent *domain.Event
	lastID    string
	lastPatch domain.EventPatch
	lastFrom  time.Time
	lastTo    time.Time
}

func (f *fakeCalendarService) CreateEvent(_ context.Context, e *domain.Event) error {
	f.lastEvent = e
	if f.err == nil {
		e.ID = testEventID
	}
	return f.err
}

func (f *fakeCalendarService) UpdateEvent(_ context.Context, id string, patch domain.EventPatch) (*domain.Event, error) {
	f.lastID, f.lastPatch = id, patch
	return f.updated, f.err
}

func (f *fakeCalendarService) DeleteEvent(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeCalendarService) Calendar(_ context.Context, from, to time.Time) (*domain.CalendarView, error) {
	f.lastFrom, f.lastTo = from, to
	return f.view, f.err
}

func (f *fakeCalendarService) ConfirmedEvents(context.Context) ([]*domain.Event, error) {
	return f.events, f.err
}

type fakeExporter struct {
	err  error
	seen []*domain.Event
}

func (f *fakeExporter) Export(events []*domain.Event) ([]byte, error) {
	f.seen = events
	if f.err != nil {
		return nil, f.err
	}
	return []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil
}

func sampleView() *domain.CalendarView {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	requestID := testRequestID
	contract := "V-2025-17"
	hall := "Saal"
	return &domain.CalendarView{
		From: start,
		To:   start.AddDate(0, 1, 0),
		Events: []*domain.Event{
			{ID: "evt-public", Title: "Flohmarkt", Description: "Jeden Monat", StartDate: start, EndDate: start.Add(8 * time.Hour), EventType: domain.EventTypePublic},
			{
				ID: "evt-private", Title: "Hochzeit Müller", Description: "Familienfeier", IsPrivate: true,
				StartDate: start.AddDate(0, 0, 5), EndDate: start.AddDate(0, 0, 6), EventType: domain.EventTypePrivate,
				RequesterName: "Erika Mustermann", RequesterEmail: ownerEmail,
				SignedContractRef: &contract, LinkedRequestID: &requestID, Location: &hall,
			},
		},
		Blocks: []*domain.TemporaryBlock{
			{ID: "blk-1", RequestID: "req-2", Title: "Geburtstag", RequesterName: "Max", StartDate: start.AddDate(0, 0, 10), EndDate: start.AddDate(0, 0, 11), StageAtCreation: domain.StageInitialAccepted},
		},
	}
}

type calendarPayload struct {
	Data struct {
		Events []domain.Event          `json:"events"`
		Blocks []domain.TemporaryBlock `json:"blocks"`
	} `json:"data"`
}

func TestCalendarController_Calendar_MasksForPublic(t *testing.T) {
	svc := &fakeCalendarService{view: sampleView()}
	c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/calendar?from=2025-06-01&to=2025-07-01", nil)
	rec := httptest.NewRecorder()

	c.Calendar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body calendarPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data.Events, 2)
	assert.Equal(t, "Flohmarkt", body.Data.Events[0].Title)
	assert.Equal(t, "Jeden Monat", body.Data.Events[0].Description)

	private := body.Data.Events[1]
	assert.Equal(t, "Privates Event", private.Title)
	assert.Empty(t, private.Description)
	assert.Empty(t, private.RequesterEmail)
	assert.Nil(t, private.SignedContractRef)
	assert.Nil(t, private.Location)
	assert.True(t, private.IsPrivate)

	require.Len(t, body.Data.Blocks, 1)
	assert.Equal(t, "Vorgemerkt", body.Data.Blocks[0].Title)
	assert.Empty(t, body.Data.Blocks[0].RequesterName)
	assert.Empty(t, body.Data.Blocks[0].RequestID)

	// The service's view must not be mutated by masking.
	assert.Equal(t, "Hochzeit Müller", svc.view.Events[1].Title)
	assert.True(t, svc.lastFrom.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, svc.lastTo.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCalendarController_Calendar_AdminSeesEverything(t *testing.T) {
	svc := &fakeCalendarService{view: sampleView()}
	c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/calendar", nil), adminPrincipal)
	rec := httptest.NewRecorder()

	c.Calendar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body calendarPayload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Hochzeit Müller", body.Data.Events[1].Title)
	assert.Equal(t, ownerEmail, body.Data.Events[1].RequesterEmail)
	assert.Equal(t, "Geburtstag", body.Data.Blocks[0].Title)
}

func TestCalendarController_Calendar_DefaultWindow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	svc := &fakeCalendarService{view: &domain.CalendarView{}}
	c := NewCalendarController(testLogger, svc, &fakeExporter{}, berlin)
	c.now = func() time.Time { return time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC) }
	rec := httptest.NewRecorder()

	c.Calendar(rec, httptest.NewRequest(http.MethodGet, "/calendar", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	wantFrom := time.Date(2025, 3, 11, 0, 0, 0, 0, berlin)
	assert.True(t, svc.lastFrom.Equal(wantFrom), "from = %s", svc.lastFrom)
	assert.True(t, svc.lastTo.Equal(wantFrom.Add(90*24*time.Hour)))
}

func TestCalendarController_Calendar_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "bad from", query: "?from=gestern", wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "bad to", query: "?to=morgen", wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "inverted window", query: "?from=2025-07-01&to=2025-06-01", svcErr: domain.NewValidationError("to must be after from"), wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "store down", svcErr: domain.ErrStoreUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: helpers.ErrCodeStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCalendarService{err: tt.svcErr}
			c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
			rec := httptest.NewRecorder()

			c.Calendar(rec, httptest.NewRequest(http.MethodGet, "/calendar"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			envelope := decodeEnvelope(t, rec)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
		})
	}
}

func TestCalendarController_ExportICS(t *testing.T) {
	t.Run("feed", func(t *testing.T) {
		events := sampleView().Events
		exporter := &fakeExporter{}
		c := NewCalendarController(testLogger, &fakeCalendarService{events: events}, exporter, nil)
		rec := httptest.NewRecorder()

		c.ExportICS(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR"))
		assert.Len(t, exporter.seen, 2)
	})

	t.Run("store down", func(t *testing.T) {
		c := NewCalendarController(testLogger, &fakeCalendarService{err: domain.ErrStoreUnavailable}, &fakeExporter{}, nil)
		rec := httptest.NewRecorder()

		c.ExportICS(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("export failure", func(t *testing.T) {
		c := NewCalendarController(testLogger, &fakeCalendarService{}, &fakeExporter{err: errors.New("boom")}, nil)
		rec := httptest.NewRecorder()

		c.ExportICS(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCalendarController_CreateEvent(t *testing.T) {
	conflict := &domain.ConflictError{Conflicts: []domain.TimeRange{{ID: "evt-1", Label: "Flohmarkt"}}}
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "created", body: `{"title":" Chorprobe ","start_date":"2025-06-01T18:00:00Z","end_date":"2025-06-01T20:00:00Z","location":"Saal"}`, wantStatus: http.StatusCreated},
		{name: "missing title", body: `{"start_date":"2025-06-01","end_date":"2025-06-02"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "bad end", body: `{"title":"Chorprobe","start_date":"2025-06-01","end_date":"bald"}`, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "overlap", body: `{"title":"Chorprobe","start_date":"2025-06-01","end_date":"2025-06-02"}`, svcErr: conflict, wantStatus: http.StatusConflict, wantCode: helpers.ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCalendarService{err: tt.svcErr}
			c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
			req := withPrincipal(httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(tt.body)), adminPrincipal)
			rec := httptest.NewRecorder()

			c.CreateEvent(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			envelope := decodeEnvelope(t, rec)
			if tt.wantCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantCode, envelope.Error.Code)
				return
			}
			require.NotNil(t, svc.lastEvent)
			assert.Equal(t, "Chorprobe", svc.lastEvent.Title)
			assert.Equal(t, domain.EventTypePublic, svc.lastEvent.EventType)
			require.NotNil(t, svc.lastEvent.Location)
			assert.Equal(t, "Saal", *svc.lastEvent.Location)
			data, ok := envelope.Data.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, testEventID, data["id"])
		})
	}
}

func TestCalendarController_UpdateEvent(t *testing.T) {
	t.Run("partial patch", func(t *testing.T) {
		svc := &fakeCalendarService{updated: &domain.Event{ID: testEventID, Title: "Neu"}}
		c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
		req := httptest.NewRequest(http.MethodPatch, "/events/"+testEventID, strings.NewReader(`{"title":"Neu","end_date":"2025-06-02"}`))
		req.SetPathValue("id", testEventID)
		rec := httptest.NewRecorder()

		c.UpdateEvent(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testEventID, svc.lastID)
		require.NotNil(t, svc.lastPatch.Title)
		assert.Equal(t, "Neu", *svc.lastPatch.Title)
		assert.Nil(t, svc.lastPatch.StartDate)
		require.NotNil(t, svc.lastPatch.EndDate)
		assert.True(t, svc.lastPatch.EndDate.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
		assert.Nil(t, svc.lastPatch.IsPrivate)
	})

	t.Run("bad start", func(t *testing.T) {
		svc := &fakeCalendarService{}
		c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
		req := httptest.NewRequest(http.MethodPatch, "/events/"+testEventID, strings.NewReader(`{"start_date":"x"}`))
		req.SetPathValue("id", testEventID)
		rec := httptest.NewRecorder()

		c.UpdateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.lastID)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeCalendarService{err: domain.ErrNotFound}
		c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
		req := httptest.NewRequest(http.MethodPatch, "/events/"+testEventID, strings.NewReader(`{"title":"Neu"}`))
		req.SetPathValue("id", testEventID)
		rec := httptest.NewRecorder()

		c.UpdateEvent(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCalendarController_DeleteEvent(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		svcErr     error
		wantStatus int
	}{
		{name: "deleted", id: testEventID, wantStatus: http.StatusNoContent},
		{name: "not found", id: testEventID, svcErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "bad id", id: "evt-1", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCalendarService{err: tt.svcErr}
			c := NewCalendarController(testLogger, svc, &fakeExporter{}, nil)
			req := httptest.NewRequest(http.MethodDelete, "/events/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			rec := httptest.NewRecorder()

			c.DeleteEvent(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

type fakeReconciler struct {
	report domain.ReconcileReport
	err    error
}

func (f *fakeReconciler) EnsureBlock(context.Context, *domain.EventRequest) error { return nil }
func (f *fakeReconciler) ReleaseBlock(context.Context, string) error              { return nil }
func (f *fakeReconciler) Reconcile(context.Context) (domain.ReconcileReport, error) {
	return f.report, f.err
}

func TestAdminController_ReconcileBlocks(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		c := NewAdminController(testLogger, &fakeReconciler{report: domain.ReconcileReport{Created: 2, Released: 1}})
		rec := httptest.NewRecorder()

		c.ReconcileBlocks(rec, httptest.NewRequest(http.MethodPost, "/admin/reconcile-blocks", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body ReconcileSuccessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, domain.ReconcileReport{Created: 2, Released: 1}, body.Data)
	})

	t.Run("store down", func(t *testing.T) {
		c := NewAdminController(testLogger, &fakeReconciler{err: domain.ErrStoreUnavailable})
		rec := httptest.NewRecorder()

		c.ReconcileBlocks(rec, httptest.NewRequest(http.MethodPost, "/admin/reconcile-blocks", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
