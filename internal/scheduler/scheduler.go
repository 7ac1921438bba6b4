package scheduler

import (
	"context"
	"log/slog"
	"time"

	"pricepulse/internal/domain"
)

// Reconciler runs one reconciliation tick.
type Reconciler interface {
	Reconcile(ctx context.Context) (*domain.ReconcileStats, error)
}

// tickTimeout bounds a single tick so a wedged fetch cannot block the
// schedule indefinitely.
const tickTimeout = 20 * time.Minute

type Scheduler struct {
	reconciler Reconciler
	interval   time.Duration
	logger     *slog.Logger
}

func NewScheduler(reconciler Reconciler, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// runTick absorbs tick failures: a crashed iteration must not unschedule
// future iterations.
func (s *Scheduler) runTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	if _, err := s.reconciler.Reconcile(tickCtx); err != nil {
		s.logger.Error("reconcile tick failed", "error", err)
	}
}
