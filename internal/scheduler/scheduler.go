package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker is the engine entry point the driver fires each period.
type Ticker interface {
	Tick(ctx context.Context, now time.Time)
}

// Scheduler drives the engine's periodic evaluation of all users.
type Scheduler struct {
	engine   Ticker
	log      *zap.Logger
	interval time.Duration
}

// New creates a Scheduler with the given tick period (60s by default).
func New(engine Ticker, log *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{engine: engine, log: log, interval: interval}
}

// Run ticks until ctx is canceled. Stopping between ticks cannot tear
// state: the engine applies each user's mutation fully before the
// store is updated.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.engine.Tick(ctx, time.Now().UTC())
		}
	}
}
