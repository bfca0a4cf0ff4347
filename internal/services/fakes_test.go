package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"venuebooking/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

// fakeRequestRepo is an in-memory EventRequestRepository. It stores copies so callers
// cannot mutate persisted state behind its back.
type fakeRequestRepo struct {
	byID          map[string]domain.EventRequest
	nextID        int
	createErr     error
	getErr        error
	transitionErr error
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byID: make(map[string]domain.EventRequest), nextID: 1}
}

func (f *fakeRequestRepo) Create(ctx context.Context, r *domain.EventRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	r.ID = fmt.Sprintf("req-%d", f.nextID)
	f.nextID++
	f.byID[r.ID] = *r
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (*domain.EventRequest, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter domain.RequestFilter) ([]*domain.EventRequest, int, error) {
	var out []*domain.EventRequest
	for _, r := range f.byID {
		if filter.Stage != nil && r.Stage != *filter.Stage {
			continue
		}
		if filter.RequesterEmail != "" && r.RequesterEmail != filter.RequesterEmail {
			continue
		}
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	start, end := filter.Pagination.Window(len(out))
	return out[start:end], len(out), nil
}

func (f *fakeRequestRepo) ListByStages(ctx context.Context, stages []domain.Stage) ([]*domain.EventRequest, error) {
	var out []*domain.EventRequest
	for _, r := range f.byID {
		for _, s := range stages {
			if r.Stage == s {
				out = append(out, &r)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRequestRepo) Transition(ctx context.Context, r *domain.EventRequest, from domain.Stage) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	stored, ok := f.byID[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Stage != from {
		return domain.ErrStageChanged
	}
	f.byID[r.ID] = *r
	return nil
}

// fakeEventRepo is an in-memory EventRepository.
type fakeEventRepo struct {
	byID      map[string]*domain.Event
	nextID    int
	createErr error
	listErr   error
	deleted   []string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	if e.LinkedRequestID != nil {
		for _, other := range f.byID {
			if other.LinkedRequestID != nil && *other.LinkedRequestID == *e.LinkedRequestID {
				return domain.ErrAlreadyExists
			}
		}
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) GetByLinkedRequestID(ctx context.Context, requestID string) (*domain.Event, error) {
	for _, e := range f.byID {
		if e.LinkedRequestID != nil && *e.LinkedRequestID == requestID {
			return e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	if _, ok := f.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeEventRepo) ListOverlapping(ctx context.Context, from, to time.Time) ([]*domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Event
	for _, e := range f.sorted() {
		if domain.Overlaps(e.StartDate, e.EndDate, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) ListAll(ctx context.Context) ([]*domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(), nil
}

func (f *fakeEventRepo) sorted() []*domain.Event {
	out := make([]*domain.Event, 0, len(f.byID))
	for _, e := range f.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (f *fakeEventRepo) linkedTo(requestID string) []*domain.Event {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.LinkedRequestID != nil && *e.LinkedRequestID == requestID {
			out = append(out, e)
		}
	}
	return out
}

// fakeBlockRepo is an in-memory TemporaryBlockRepository. Unlike the real table it
// allows duplicate rows, so drift can be staged directly.
type fakeBlockRepo struct {
	blocks    []*domain.TemporaryBlock
	nextID    int
	createErr error
	deleteErr error
	creates   int
}

func newFakeBlockRepo() *fakeBlockRepo {
	return &fakeBlockRepo{nextID: 1}
}

func (f *fakeBlockRepo) Create(ctx context.Context, b *domain.TemporaryBlock) error {
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	b.ID = fmt.Sprintf("blk-%d", f.nextID)
	f.nextID++
	f.blocks = append(f.blocks, b)
	return nil
}

func (f *fakeBlockRepo) ListByRequestID(ctx context.Context, requestID string) ([]*domain.TemporaryBlock, error) {
	var out []*domain.TemporaryBlock
	for _, b := range f.blocks {
		if b.RequestID == requestID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBlockRepo) DeleteByRequestID(ctx context.Context, requestID string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.blocks[:0]
	n := 0
	for _, b := range f.blocks {
		if b.RequestID == requestID {
			n++
			continue
		}
		kept = append(kept, b)
	}
	f.blocks = kept
	return n, nil
}

func (f *fakeBlockRepo) ListOverlapping(ctx context.Context, from, to time.Time) ([]*domain.TemporaryBlock, error) {
	var out []*domain.TemporaryBlock
	for _, b := range f.blocks {
		if domain.Overlaps(b.StartDate, b.EndDate, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBlockRepo) ListAll(ctx context.Context) ([]*domain.TemporaryBlock, error) {
	return append([]*domain.TemporaryBlock(nil), f.blocks...), nil
}

func (f *fakeBlockRepo) count(requestID string) int {
	n := 0
	for _, b := range f.blocks {
		if b.RequestID == requestID {
			n++
		}
	}
	return n
}

type sentNotification struct {
	Recipients []string
	Subject    string
	Body       string
}

// fakeSink records every notification it receives.
type fakeSink struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeSink) Send(ctx context.Context, recipients []string, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{Recipients: recipients, Subject: subject, Body: body})
	return nil
}

func (f *fakeSink) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Subject)
	}
	return out
}

// fakeRenderer uses the template name as the subject.
type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(templateName string, data any) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	d := data.(*domain.RequestNotificationData)
	return templateName, d.RequestID + " " + d.Title, nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

type fakeMetrics struct {
	transitions map[string]int
	conflicts   map[domain.Action]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{transitions: map[string]int{}, conflicts: map[domain.Action]int{}}
}

func (f *fakeMetrics) TransitionObserved(action domain.Action, outcome string) {
	f.transitions[string(action)+"/"+outcome]++
}

func (f *fakeMetrics) ConflictDetected(action domain.Action) {
	f.conflicts[action]++
}
