package reservation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Silicom-11/synaplink-engine/internal/clock"
	"github.com/Silicom-11/synaplink-engine/internal/observability"
)

// Sweeper drives the two periodic reconciliation passes: expiring
// stale holds and completing elapsed sessions. It runs inside the API
// process because the registry it reconciles is process-local state.
type Sweeper struct {
	svc                *Service
	clock              clock.Clock
	logger             observability.Logger
	expiryInterval     time.Duration
	completionInterval time.Duration
}

func NewSweeper(svc *Service, clk clock.Clock, logger observability.Logger, expiryInterval, completionInterval time.Duration) *Sweeper {
	return &Sweeper{
		svc:                svc,
		clock:              clk,
		logger:             logger,
		expiryInterval:     expiryInterval,
		completionInterval: completionInterval,
	}
}

// Run blocks until ctx is cancelled. Sweep errors are logged, never
// fatal: both passes are idempotent and retry on the next tick.
func (w *Sweeper) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.loop(ctx, "expiry", w.expiryInterval, w.svc.ExpireStale)
	})
	g.Go(func() error {
		return w.loop(ctx, "completion", w.completionInterval, w.svc.CompleteElapsed)
	})
	return g.Wait()
}

func (w *Sweeper) loop(ctx context.Context, name string, interval time.Duration, pass func(context.Context, time.Time) (int, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			started := time.Now()
			count, err := pass(ctx, w.clock.Now())
			observability.SweepDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
			if err != nil {
				w.logger.WithError(err).WithField("sweep", name).Error("sweep pass failed")
				continue
			}
			if count > 0 {
				w.logger.WithField("sweep", name).WithField("count", count).Info("sweep reconciled reservations")
			}
		}
	}
}
