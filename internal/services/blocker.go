package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuebooking/internal/domain"
)

type blockerReconciler struct {
	blockRepo      domain.TemporaryBlockRepository
	requestRepo    domain.EventRequestRepository
	location       *time.Location
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewBlockerReconciler returns the BlockerReconciler that owns TemporaryBlock creation and deletion.
// Blocks end at the close of the request's last day in location.
func NewBlockerReconciler(blockRepo domain.TemporaryBlockRepository, requestRepo domain.EventRequestRepository, location *time.Location, logger *slog.Logger, timeout time.Duration) domain.BlockerReconciler {
	if location == nil {
		location = time.UTC
	}
	return &blockerReconciler{
		blockRepo:      blockRepo,
		requestRepo:    requestRepo,
		location:       location,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (b *blockerReconciler) EnsureBlock(ctx context.Context, r *domain.EventRequest) error {
	_, err := b.ensure(ctx, r)
	return err
}

func (b *blockerReconciler) ensure(ctx context.Context, r *domain.EventRequest) (bool, error) {
	if !r.Stage.HoldsBlock() {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.contextTimeout)
	defer cancel()

	existing, err := b.blockRepo.ListByRequestID(ctx, r.ID)
	if err != nil {
		return false, fmt.Errorf("list blocks: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	block := domain.NewTemporaryBlock(r, b.location, b.now())
	if err := b.blockRepo.Create(ctx, block); err != nil {
		// A concurrent EnsureBlock won the unique constraint; the invariant holds.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create block: %w: %w", domain.ErrStoreUnavailable, err)
	}
	b.logger.DebugContext(ctx, "temporary block created", "request_id", r.ID, "block_id", block.ID)
	return true, nil
}

func (b *blockerReconciler) ReleaseBlock(ctx context.Context, requestID string) error {
	_, err := b.release(ctx, requestID)
	return err
}

func (b *blockerReconciler) release(ctx context.Context, requestID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, b.contextTimeout)
	defer cancel()

	n, err := b.blockRepo.DeleteByRequestID(ctx, requestID)
	if err != nil {
		return 0, fmt.Errorf("delete blocks: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if n > 0 {
		b.logger.DebugContext(ctx, "temporary block released", "request_id", requestID, "count", n)
	}
	return n, nil
}

// Reconcile creates missing blocks for held requests and releases blocks whose request
// has left the held stages (or no longer exists). The two listings only nominate
// candidates; each one is settled against the request as stored at that moment.
// Individual failures are counted, not fatal.
func (b *blockerReconciler) Reconcile(ctx context.Context) (domain.ReconcileReport, error) {
	var report domain.ReconcileReport

	held, err := b.listHeld(ctx)
	if err != nil {
		return report, err
	}
	blocks, err := b.listBlocks(ctx)
	if err != nil {
		return report, err
	}

	heldIDs := make(map[string]bool, len(held))
	for _, r := range held {
		heldIDs[r.ID] = true
	}
	blocked := make(map[string]bool, len(blocks))
	var candidates []string
	for _, blk := range blocks {
		if blocked[blk.RequestID] {
			continue
		}
		blocked[blk.RequestID] = true
		if !heldIDs[blk.RequestID] {
			candidates = append(candidates, blk.RequestID)
		}
	}
	for _, r := range held {
		if !blocked[r.ID] {
			candidates = append(candidates, r.ID)
		}
	}

	for _, id := range candidates {
		created, released, err := b.settle(ctx, id)
		if err != nil {
			b.logger.WarnContext(ctx, "reconcile failed", "request_id", id, "err", err)
			report.Failed++
			continue
		}
		if created {
			report.Created++
		}
		if released {
			report.Released++
		}
	}
	return report, nil
}

// settle brings requestID's blocks in line with its stored stage. The stage is read
// again after acting so a transition that lands mid-way is honored as well.
func (b *blockerReconciler) settle(ctx context.Context, requestID string) (created, released bool, err error) {
	current, err := b.current(ctx, requestID)
	if err != nil {
		return false, false, err
	}
	for range 2 {
		holds := current != nil && current.Stage.HoldsBlock()
		if holds {
			ok, err := b.ensure(ctx, current)
			if err != nil {
				return created, released, err
			}
			created = created || ok
		} else {
			n, err := b.release(ctx, requestID)
			if err != nil {
				return created, released, err
			}
			released = released || n > 0
		}
		current, err = b.current(ctx, requestID)
		if err != nil {
			return created, released, err
		}
		if holds == (current != nil && current.Stage.HoldsBlock()) {
			break
		}
	}
	return created, released, nil
}

// current loads the stored request, or nil when it no longer exists.
func (b *blockerReconciler) current(ctx context.Context, requestID string) (*domain.EventRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, b.contextTimeout)
	defer cancel()
	r, err := b.requestRepo.GetByID(ctx, requestID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load request: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return r, nil
}

func (b *blockerReconciler) listHeld(ctx context.Context) ([]*domain.EventRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, b.contextTimeout)
	defer cancel()
	held, err := b.requestRepo.ListByStages(ctx, domain.HeldStages)
	if err != nil {
		return nil, fmt.Errorf("list held requests: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return held, nil
}

func (b *blockerReconciler) listBlocks(ctx context.Context) ([]*domain.TemporaryBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, b.contextTimeout)
	defer cancel()
	blocks, err := b.blockRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return blocks, nil
}
