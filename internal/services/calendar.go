package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuebooking/internal/domain"
)

type calendarService struct {
	eventRepo      domain.EventRepository
	blockRepo      domain.TemporaryBlockRepository
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewCalendarService returns the service for admin-direct events and calendar reads.
func NewCalendarService(eventRepo domain.EventRepository, blockRepo domain.TemporaryBlockRepository, logger *slog.Logger, timeout time.Duration) domain.CalendarService {
	return &calendarService{
		eventRepo:      eventRepo,
		blockRepo:      blockRepo,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *calendarService) CreateEvent(ctx context.Context, e *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateEvent(e); err != nil {
		return err
	}
	if err := s.checkConflicts(ctx, e.Range(), ""); err != nil {
		return err
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return fmt.Errorf("create event: %w: %w", domain.ErrStoreUnavailable, err)
	}
	s.logger.InfoContext(ctx, "event created", "event_id", e.ID)
	return nil
}

func (s *calendarService) UpdateEvent(ctx context.Context, id string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get event", err)
	}
	if patch.Title != nil {
		e.Title = sanitizeText(*patch.Title)
	}
	if patch.Description != nil {
		e.Description = sanitizeText(*patch.Description)
	}
	if patch.StartDate != nil {
		e.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		e.EndDate = *patch.EndDate
	}
	if patch.IsPrivate != nil {
		e.IsPrivate = *patch.IsPrivate
		e.EventType = domain.EventTypeFor(e.IsPrivate)
	}
	if patch.Location != nil {
		loc := sanitizeText(*patch.Location)
		e.Location = &loc
	}
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, e.Range(), e.ID); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now()
	if err := s.eventRepo.Update(ctx, e); err != nil {
		return nil, storeErr("update event", err)
	}
	return e, nil
}

func (s *calendarService) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return storeErr("delete event", err)
	}
	s.logger.InfoContext(ctx, "event deleted", "event_id", id)
	return nil
}

// Calendar returns confirmed events and temporary blocks intersecting [from, to).
func (s *calendarService) Calendar(ctx context.Context, from, to time.Time) (*domain.CalendarView, error) {
	if !from.Before(to) {
		return nil, domain.NewValidationError("from must be before to")
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	blocks, err := s.blockRepo.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, storeErr("list blocks", err)
	}
	return &domain.CalendarView{From: from, To: to, Events: events, Blocks: blocks}, nil
}

func (s *calendarService) ConfirmedEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListAll(ctx)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

func (s *calendarService) checkConflicts(ctx context.Context, candidate domain.TimeRange, excludeID string) error {
	events, err := s.eventRepo.ListOverlapping(ctx, candidate.Start, candidate.End)
	if err != nil {
		return storeErr("list events", err)
	}
	ranges := make([]domain.TimeRange, 0, len(events))
	for _, e := range events {
		ranges = append(ranges, e.Range())
	}
	if conflicts := domain.FindConflicts(candidate, ranges, excludeID); len(conflicts) > 0 {
		return &domain.ConflictError{Candidate: candidate, Conflicts: conflicts}
	}
	return nil
}

func validateEvent(e *domain.Event) error {
	var problems []string
	e.Title = sanitizeText(e.Title)
	if e.Title == "" {
		problems = append(problems, "title is required")
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		problems = append(problems, "start_date and end_date are required")
	} else if !e.StartDate.Before(e.EndDate) {
		problems = append(problems, "start_date must be before end_date")
	}
	if e.EventType == "" {
		e.EventType = domain.EventTypeFor(e.IsPrivate)
	}
	if len(problems) > 0 {
		return domain.NewValidationError(problems...)
	}
	return nil
}

// storeErr keeps ErrNotFound as is and marks everything else as a store failure.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
