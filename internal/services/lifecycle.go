package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"venuebooking/internal/domain"
)

// Transition outcomes reported to LifecycleMetrics.
const (
	outcomeOK           = "ok"
	outcomeValidation   = "validation"
	outcomeInvalidStage = "invalid_stage"
	outcomeConflict     = "conflict"
	outcomeNotFound     = "not_found"
	outcomeForbidden    = "forbidden"
	outcomeRateLimited  = "rate_limited"
	outcomeError        = "error"
)

type requestLifecycle struct {
	requestRepo    domain.EventRequestRepository
	eventRepo      domain.EventRepository
	blocker        domain.BlockerReconciler
	notify         *notifier
	limiter        domain.SubmissionLimiter
	metrics        domain.LifecycleMetrics
	location       *time.Location
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewRequestLifecycleService returns the state machine over EventRequests. limiter and
// metrics may be nil. Exact datetimes without a zone are read in location.
func NewRequestLifecycleService(
	requestRepo domain.EventRequestRepository,
	eventRepo domain.EventRepository,
	blocker domain.BlockerReconciler,
	sink domain.NotificationSink,
	renderer domain.EmailTemplateRenderer,
	settings domain.NotificationSettings,
	limiter domain.SubmissionLimiter,
	metrics domain.LifecycleMetrics,
	location *time.Location,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RequestLifecycleService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if location == nil {
		location = time.UTC
	}
	return &requestLifecycle{
		requestRepo:    requestRepo,
		eventRepo:      eventRepo,
		blocker:        blocker,
		notify:         newNotifier(sink, renderer, settings, logger, timeout),
		limiter:        limiter,
		metrics:        metrics,
		location:       location,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *requestLifecycle) SubmitInitial(ctx context.Context, in domain.InitialRequestInput) (r *domain.EventRequest, err error) {
	defer s.observe(domain.ActionSubmitInitial, &err)

	r, err = validateInitial(in)
	if err != nil {
		return nil, err
	}
	if err := s.allowSubmission(ctx, r.RequesterEmail); err != nil {
		return nil, err
	}

	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	if err := s.create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "event request submitted", "request_id", r.ID, "stage", r.Stage)

	s.notify.admins(ctx, domain.TemplateRequestSubmittedAdmin, r)
	s.notify.requester(ctx, domain.TemplateRequestReceived, r)
	return r, nil
}

func (s *requestLifecycle) AcceptInitial(ctx context.Context, id, adminNotes string) (_ *domain.EventRequest, err error) {
	defer s.observe(domain.ActionAcceptInitial, &err)

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextStage(id, current.Stage, domain.ActionAcceptInitial)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := *current
	updated.Stage = next
	updated.InitialAcceptedAt = &now
	updated.UpdatedAt = now
	if notes := sanitizeText(adminNotes); notes != "" {
		updated.AdminNotes = &notes
	}
	if err := s.persist(ctx, &updated, current.Stage, domain.ActionAcceptInitial); err != nil {
		return nil, err
	}

	s.ensureBlock(ctx, &updated)
	s.notify.requester(ctx, domain.TemplateInitialAccepted, &updated)
	return &updated, nil
}

func (s *requestLifecycle) Reject(ctx context.Context, id, reason string) (_ *domain.EventRequest, err error) {
	defer s.observe(domain.ActionReject, &err)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("rejection reason is required")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextStage(id, current.Stage, domain.ActionReject)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := *current
	updated.Stage = next
	updated.RejectionReason = &reason
	updated.RejectedAt = &now
	updated.ExactStart, updated.ExactEnd = nil, nil
	updated.UpdatedAt = now
	if err := s.persist(ctx, &updated, current.Stage, domain.ActionReject); err != nil {
		return nil, err
	}

	s.releaseBlock(ctx, id)
	s.notify.requester(ctx, domain.TemplateRequestRejected, &updated)
	return &updated, nil
}

func (s *requestLifecycle) Cancel(ctx context.Context, id, callerEmail string) (_ *domain.EventRequest, err error) {
	defer s.observe(domain.ActionCancel, &err)

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOwner(callerEmail) {
		return nil, fmt.Errorf("cancel request %s: %w", id, domain.ErrForbidden)
	}
	next, err := domain.NextStage(id, current.Stage, domain.ActionCancel)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := *current
	updated.Stage = next
	updated.CancelledAt = &now
	updated.ExactStart, updated.ExactEnd = nil, nil
	updated.UpdatedAt = now
	if err := s.persist(ctx, &updated, current.Stage, domain.ActionCancel); err != nil {
		return nil, err
	}

	s.releaseBlock(ctx, id)
	s.notify.requester(ctx, domain.TemplateRequestCancelled, &updated)
	return &updated, nil
}

func (s *requestLifecycle) SubmitDetails(ctx context.Context, id string, details domain.DetailsInput) (_ *domain.EventRequest, err error) {
	defer s.observe(domain.ActionSubmitDetails, &err)

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextStage(id, current.Stage, domain.ActionSubmitDetails)
	if err != nil {
		return nil, err
	}
	parsed, err := validateDetails(details, s.location)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := *current
	updated.Stage = next
	updated.ExactStart = &parsed.exactStart
	updated.ExactEnd = &parsed.exactEnd
	updated.KeyHandoverAt = parsed.keyHandover
	updated.KeyReturnAt = parsed.keyReturn
	updated.SignedContractRef = &parsed.contractRef
	updated.Location = parsed.location
	updated.MaxParticipants = parsed.maxPart
	updated.AdditionalNotes = parsed.notes
	updated.DetailsSubmittedAt = &now
	updated.UpdatedAt = now

	if err := s.checkConflicts(ctx, domain.ActionSubmitDetails, updated.BookedRange(), ""); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, &updated, current.Stage, domain.ActionSubmitDetails); err != nil {
		return nil, err
	}

	s.ensureBlock(ctx, &updated)
	s.notify.admins(ctx, domain.TemplateDetailsSubmittedAdmin, &updated)
	return &updated, nil
}

// FinalAccept re-checks conflicts, materializes the confirmed Event, then advances the
// stage. If the stage write fails the event created here is deleted again.
func (s *requestLifecycle) FinalAccept(ctx context.Context, id string) (_ *domain.EventRequest, err error) {
	defer s.observe(domain.ActionFinalAccept, &err)

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := domain.NextStage(id, current.Stage, domain.ActionFinalAccept)
	if err != nil {
		return nil, err
	}

	// A leftover event from an interrupted attempt is reused, and must not conflict with itself.
	existing, err := s.linkedEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	excludeID := ""
	if existing != nil {
		excludeID = existing.ID
	}
	if err := s.checkConflicts(ctx, domain.ActionFinalAccept, current.BookedRange(), excludeID); err != nil {
		return nil, err
	}

	now := s.now()
	created := false
	if existing == nil {
		existing, created, err = s.materialize(ctx, current, now)
		if err != nil {
			return nil, err
		}
	}

	updated := *current
	updated.Stage = next
	updated.FinalAcceptedAt = &now
	updated.UpdatedAt = now
	if err := s.persist(ctx, &updated, current.Stage, domain.ActionFinalAccept); err != nil {
		if created {
			s.compensate(ctx, existing)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "event request confirmed", "request_id", id, "event_id", existing.ID)

	s.releaseBlock(ctx, id)
	s.notify.requester(ctx, domain.TemplateFinalApproved, &updated)
	s.notify.admins(ctx, domain.TemplateFinalAcceptedAdmin, &updated)
	return &updated, nil
}

func (s *requestLifecycle) GetRequest(ctx context.Context, id string) (*domain.EventRequest, error) {
	return s.load(ctx, id)
}

func (s *requestLifecycle) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]*domain.EventRequest, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter.RequesterEmail = normalizeEmail(filter.RequesterEmail)
	list, total, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return list, total, nil
}

func (s *requestLifecycle) allowSubmission(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ok, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "submission limiter unavailable, allowing", "err", err)
		return nil
	}
	if !ok {
		return fmt.Errorf("submit request for %s: %w", email, domain.ErrRateLimited)
	}
	return nil
}

func (s *requestLifecycle) create(ctx context.Context, r *domain.EventRequest) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.requestRepo.Create(ctx, r); err != nil {
		return fmt.Errorf("create request: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *requestLifecycle) load(ctx context.Context, id string) (*domain.EventRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	r, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get request: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return r, nil
}

// persist writes r conditioned on the stored stage still being from.
func (s *requestLifecycle) persist(ctx context.Context, r *domain.EventRequest, from domain.Stage, action domain.Action) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := s.requestRepo.Transition(ctx, r, from)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "request stage changed", "request_id", r.ID, "action", action, "from", from, "to", r.Stage)
		return nil
	case errors.Is(err, domain.ErrStageChanged):
		return fmt.Errorf("%w: %w", err, &domain.StageError{RequestID: r.ID, Stage: from, Action: action})
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("request %s: %w", r.ID, domain.ErrNotFound)
	default:
		return fmt.Errorf("update request stage: %w: %w", domain.ErrStoreUnavailable, err)
	}
}

func (s *requestLifecycle) checkConflicts(ctx context.Context, action domain.Action, candidate domain.TimeRange, excludeID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListOverlapping(ctx, candidate.Start, candidate.End)
	if err != nil {
		return fmt.Errorf("list confirmed events: %w: %w", domain.ErrStoreUnavailable, err)
	}
	ranges := make([]domain.TimeRange, 0, len(events))
	for _, e := range events {
		ranges = append(ranges, e.Range())
	}
	conflicts := domain.FindConflicts(candidate, ranges, excludeID)
	if len(conflicts) == 0 {
		return nil
	}
	s.metrics.ConflictDetected(action)
	return &domain.ConflictError{Candidate: candidate, Conflicts: conflicts}
}

func (s *requestLifecycle) linkedEvent(ctx context.Context, requestID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	e, err := s.eventRepo.GetByLinkedRequestID(ctx, requestID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get linked event: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return e, nil
}

// materialize creates the confirmed event for r. created is false when a concurrent
// attempt already stored it.
func (s *requestLifecycle) materialize(ctx context.Context, r *domain.EventRequest, now time.Time) (*domain.Event, bool, error) {
	e := r.Materialize(now)

	cctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	err := s.eventRepo.Create(cctx, e)
	cancel()
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, false, fmt.Errorf("create event: %w: %w", domain.ErrStoreUnavailable, err)
	}
	existing, err := s.linkedEvent(ctx, r.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("create event: %w: linked event vanished", domain.ErrStoreUnavailable)
	}
	return existing, false, nil
}

func (s *requestLifecycle) compensate(ctx context.Context, e *domain.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.contextTimeout)
	defer cancel()

	if err := s.eventRepo.Delete(ctx, e.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "delete materialized event after failed stage write", "event_id", e.ID, "err", err)
	}
}

func (s *requestLifecycle) ensureBlock(ctx context.Context, r *domain.EventRequest) {
	if s.blocker == nil {
		return
	}
	if err := s.blocker.EnsureBlock(ctx, r); err != nil {
		s.logger.WarnContext(ctx, "ensure temporary block failed", "request_id", r.ID, "err", err)
	}
}

func (s *requestLifecycle) releaseBlock(ctx context.Context, requestID string) {
	if s.blocker == nil {
		return
	}
	if err := s.blocker.ReleaseBlock(ctx, requestID); err != nil {
		s.logger.WarnContext(ctx, "release temporary block failed", "request_id", requestID, "err", err)
	}
}

func (s *requestLifecycle) observe(action domain.Action, err *error) {
	s.metrics.TransitionObserved(action, outcomeOf(*err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrValidation):
		return outcomeValidation
	case errors.Is(err, domain.ErrInvalidStage):
		return outcomeInvalidStage
	case errors.Is(err, domain.ErrConflict):
		return outcomeConflict
	case errors.Is(err, domain.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return outcomeRateLimited
	default:
		return outcomeError
	}
}

type noopMetrics struct{}

func (noopMetrics) TransitionObserved(domain.Action, string) {}
func (noopMetrics) ConflictDetected(domain.Action)           {}
