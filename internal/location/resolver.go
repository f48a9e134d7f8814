// Package location resolves the caller's coordinate through a fixed
// fallback ladder: last-known position, fresh fix, persisted manual
// location, default coordinate. The whole ladder runs under a single
// wall-clock budget and never blocks indefinitely.
package location

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/storage"
)

const (
	defaultBudget     = 2500 * time.Millisecond
	defaultFixTimeout = 2 * time.Second
)

// Settings carries the resolver's tuning knobs. Zero durations fall back
// to the documented defaults.
type Settings struct {
	// Budget bounds one whole Resolve call, all ladder steps included.
	Budget time.Duration
	// FixTimeout bounds the fresh-fix step alone.
	FixTimeout time.Duration
	// Default is returned when allowDefault is set and the ladder is
	// exhausted.
	Default domain.Coordinate
}

// Resolver walks the fallback ladder. It exclusively owns the persisted
// manual-location record.
type Resolver struct {
	source     domain.PositionSource
	store      storage.Store
	budget     time.Duration
	fixTimeout time.Duration
	defaultPos domain.Coordinate
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
}

func NewResolver(source domain.PositionSource, store storage.Store, settings Settings, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Resolver {
	if settings.Budget <= 0 {
		settings.Budget = defaultBudget
	}
	if settings.FixTimeout <= 0 {
		settings.FixTimeout = defaultFixTimeout
	}
	return &Resolver{
		source:     source,
		store:      store,
		budget:     settings.Budget,
		fixTimeout: settings.FixTimeout,
		defaultPos: settings.Default,
		logger:     logger,
		metrics:    metrics,
		clock:      clock,
	}
}

// Resolve returns a coordinate via the first ladder step that yields
// one. With allowDefault unset an exhausted ladder returns a typed
// *domain.LocationError: PermissionDenied when a permission state
// blocked the fresh fix, TimedOut otherwise.
func (r *Resolver) Resolve(ctx context.Context, allowDefault bool) (domain.Coordinate, error) {
	deadline := r.clock.Now().Add(r.budget)

	// Step 1: whatever position the source already holds, no new fix.
	if pos, ok := r.source.LastKnown(ctx); ok {
		if coord, err := domain.NewCoordinate(pos.Coordinate.Latitude, pos.Coordinate.Longitude); err == nil {
			r.logger.Debug("resolved from last-known position", "coordinate", coord)
			r.metrics.LocationResolutions.WithLabelValues("last_known").Inc()
			return coord, nil
		}
		r.logger.Warn("last-known position out of range, continuing")
	}

	// Step 2: fresh fix, only when permission allows. Any non-granted
	// state skips without re-prompting.
	permissionBlocked := false
	var fixErr error
	if perm := r.source.Permission(ctx); perm == domain.PermissionGranted {
		wait := r.fixTimeout
		if remaining := deadline.Sub(r.clock.Now()); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			pos, err := r.freshFix(ctx, wait)
			if err == nil {
				if coord, cerr := domain.NewCoordinate(pos.Coordinate.Latitude, pos.Coordinate.Longitude); cerr == nil {
					r.logger.Debug("resolved from fresh fix", "coordinate", coord)
					r.metrics.LocationResolutions.WithLabelValues("fresh_fix").Inc()
					return coord, nil
				}
				r.logger.Warn("fresh fix out of range, continuing")
			} else {
				fixErr = err
				r.logger.Debug("fresh fix unavailable", "error", err)
			}
		}
	} else {
		permissionBlocked = true
		r.logger.Debug("fresh fix skipped", "permission", string(perm))
	}

	// Step 3: the persisted manual location.
	if manual, ok, err := r.ManualLocation(ctx); err != nil {
		r.logger.Warn("manual location unreadable, continuing", "error", err)
	} else if ok {
		r.logger.Debug("resolved from manual location", "coordinate", manual.Coordinate)
		r.metrics.LocationResolutions.WithLabelValues("manual").Inc()
		return manual.Coordinate, nil
	}

	// Step 4: default coordinate, only when the caller opted in.
	if allowDefault {
		r.logger.Info("falling back to default coordinate", "coordinate", r.defaultPos)
		r.metrics.LocationResolutions.WithLabelValues("default").Inc()
		return r.defaultPos, nil
	}

	r.metrics.LocationResolutions.WithLabelValues("failed").Inc()
	if permissionBlocked {
		return domain.Coordinate{}, &domain.LocationError{
			Kind:    domain.LocationPermissionDenied,
			Message: "position permission not granted and no manual location saved",
		}
	}
	return domain.Coordinate{}, &domain.LocationError{
		Kind:    domain.LocationTimedOut,
		Message: "no position available within budget",
		Cause:   fixErr,
	}
}

// freshFix requests one fix and races it against the step timeout and
// caller cancellation. A fix arriving after the timeout is discarded.
func (r *Resolver) freshFix(ctx context.Context, wait time.Duration) (domain.Position, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		pos domain.Position
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		pos, err := r.source.Locate(ctx)
		ch <- outcome{pos: pos, err: err}
	}()

	select {
	case out := <-ch:
		return out.pos, out.err
	case <-r.clock.After(wait):
		cancel()
		return domain.Position{}, context.DeadlineExceeded
	case <-ctx.Done():
		return domain.Position{}, ctx.Err()
	}
}
