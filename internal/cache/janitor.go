package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultSweepInterval = 30 * time.Minute

// Sweeper is the cache surface the janitor drives.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Janitor periodically sweeps expired cache entries. Reads already
// purge what they touch; the janitor covers cells nothing reads.
type Janitor struct {
	cache    Sweeper
	interval time.Duration
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewJanitor creates a Janitor sweeping at the given interval. A
// non-positive interval falls back to the 30 minute default.
func NewJanitor(cache Sweeper, interval time.Duration, logger *slog.Logger, clock clockwork.Clock) *Janitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Janitor{
		cache:    cache,
		interval: interval,
		logger:   logger,
		clock:    clock,
	}
}

// Run sweeps on every interval tick until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	j.logger.Info("cache janitor started", "interval", j.interval)

	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			removed, err := j.cache.Sweep(ctx)
			if err != nil {
				j.logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				j.logger.Info("cache sweep removed stale entries", "removed", removed)
			}
		}
	}
}
