// Package sweep runs periodic cleanup jobs until their context is cancelled.
// Jobs must be idempotent: multiple gateway instances can sweep the same
// store concurrently and the deletes simply race to zero.
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// Job removes expired records and reports how many went.
type Job func(ctx context.Context) (int, error)

// Sweeper runs one named job on a fixed interval.
type Sweeper struct {
	name     string
	interval time.Duration
	job      Job
	logger   *slog.Logger
}

func New(name string, interval time.Duration, job Job, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{name: name, interval: interval, job: job, logger: logger}
}

// Run blocks until ctx is cancelled. Job failures are logged and the loop
// keeps going; a flaky store must not kill the sweeper.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.job(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", "sweeper", s.name, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
