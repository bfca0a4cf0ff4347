package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"venuebooking/internal/domain"

	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds one scheduled reconciliation run.
const sweepTimeout = 2 * time.Minute

type sweepObserver interface {
	SweepCompleted(report domain.ReconcileReport)
}

// startSweep schedules the blocker reconciliation on spec (standard five-field cron).
// Overlapping runs are skipped.
func startSweep(spec string, reconciler domain.BlockerReconciler, observer sweepObserver, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, sweepJob(reconciler, observer, logger)); err != nil {
		return nil, fmt.Errorf("invalid BLOCKER_SWEEP_CRON %q: %w", spec, err)
	}
	c.Start()
	logger.Info("blocker sweep scheduled", "cron", spec)
	return c, nil
}

func sweepJob(reconciler domain.BlockerReconciler, observer sweepObserver, logger *slog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		report, err := reconciler.Reconcile(ctx)
		if err != nil {
			logger.Error("blocker sweep failed", "err", err)
			return
		}
		observer.SweepCompleted(report)
		if report.Created > 0 || report.Released > 0 || report.Failed > 0 {
			logger.Info("blocker sweep repaired drift", "created", report.Created, "released", report.Released, "failed", report.Failed)
		}
	}
}
