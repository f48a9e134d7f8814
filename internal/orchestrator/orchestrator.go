// Package orchestrator resolves wildfire risk through a fixed provider
// ladder under a global deadline: primary, secondary inside its
// coverage region, spatial cache, then a deterministic synthetic
// generator. Resolution never fails; every call returns an attributed
// result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
)

// writeBackTimeout bounds the asynchronous cache writes and event
// publishes that outlive the resolution that queued them.
const writeBackTimeout = 2 * time.Second

// resolveSlot is the singleflight key shared by every Resolve call,
// whatever its allowDefault flag: at most one caller-located
// resolution is in flight per orchestrator instance.
const resolveSlot = "resolve"

// Budgets are the wall-clock sub-allocations of one resolution. The
// primary budget covers the whole phase, retries and backoff included.
type Budgets struct {
	Global          time.Duration
	Primary         time.Duration
	Secondary       time.Duration
	Cache           time.Duration
	PrimaryAttempts int
	RetryBase       time.Duration
}

// DefaultBudgets returns the production allocation: 8s global, 3s
// primary, 2s secondary, 200ms cache, 3 primary attempts with 200ms
// backoff base.
func DefaultBudgets() Budgets {
	return Budgets{
		Global:          8 * time.Second,
		Primary:         3 * time.Second,
		Secondary:       2 * time.Second,
		Cache:           200 * time.Millisecond,
		PrimaryAttempts: 3,
		RetryBase:       200 * time.Millisecond,
	}
}

// Locator yields the caller's coordinate.
type Locator interface {
	Resolve(ctx context.Context, allowDefault bool) (domain.Coordinate, error)
}

// Cache is the observation cache consulted after the live providers.
// Get never fails; Put errors are logged and swallowed.
type Cache interface {
	Get(ctx context.Context, spatialKey string) (domain.Observation, bool)
	Put(ctx context.Context, coord domain.Coordinate, obs domain.Observation) error
}

// Publisher emits assessment events. Implementations must respect the
// context deadline.
type Publisher interface {
	Publish(ctx context.Context, assessment domain.Assessment) error
}

// Deps wires an Orchestrator. Secondary, Region, and Publisher are
// optional; everything else is required.
type Deps struct {
	Locator   Locator
	Primary   domain.RiskProvider
	Secondary domain.RiskProvider
	Region    domain.Region
	Cache     Cache
	Publisher Publisher
	Default   domain.Coordinate
	Budgets   Budgets
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
}

// Orchestrator coordinates resolutions. Resolve holds a single
// in-flight slot per instance, ResolveAt one slot per spatial cell;
// concurrent callers coalesce onto the in-flight resolution instead of
// fanning out duplicate provider traffic.
type Orchestrator struct {
	locator    Locator
	primary    domain.RiskProvider
	secondary  domain.RiskProvider
	region     domain.Region
	cache      Cache
	publisher  Publisher
	defaultPos domain.Coordinate
	budgets    Budgets
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	group singleflight.Group
	bg    sync.WaitGroup
}

func New(deps Deps) *Orchestrator {
	if deps.Budgets.Global <= 0 {
		deps.Budgets = DefaultBudgets()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		locator:    deps.Locator,
		primary:    deps.Primary,
		secondary:  deps.Secondary,
		region:     deps.Region,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		defaultPos: deps.Default,
		budgets:    deps.Budgets,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
	}
}

// Resolve locates the caller and resolves risk there. It cannot fail:
// an unresolvable location degrades to a synthetic result at the
// default coordinate rather than an error. Concurrent calls coalesce
// onto the single in-flight resolution and receive its result; the
// flight runs under the first caller's allowDefault flag.
func (o *Orchestrator) Resolve(ctx context.Context, allowDefault bool) domain.RiskResult {
	return o.coalesce(resolveSlot, func() domain.RiskResult {
		start := o.clock.Now()
		deadline := start.Add(o.budgets.Global)

		coord, err := o.locator.Resolve(ctx, allowDefault)
		var result domain.RiskResult
		if err != nil {
			o.logger.Warn("location unresolved, serving synthetic at default", "error", err)
			result = o.synthetic(o.defaultPos)
		} else {
			result = o.run(ctx, coord, deadline)
		}
		o.finish(result, start)
		return result
	})
}

// ResolveAt resolves risk for an explicit coordinate. Calls for the
// same spatial cell coalesce onto one flight; distinct cells resolve
// independently.
func (o *Orchestrator) ResolveAt(ctx context.Context, coord domain.Coordinate) domain.RiskResult {
	key := "at:" + domain.SpatialKeyFor(coord)
	return o.coalesce(key, func() domain.RiskResult {
		start := o.clock.Now()
		result := o.run(ctx, coord, start.Add(o.budgets.Global))
		o.finish(result, start)
		return result
	})
}

// Drain blocks until queued cache writes and event publishes finish.
// Called on shutdown after the HTTP server has stopped.
func (o *Orchestrator) Drain() {
	o.bg.Wait()
}

func (o *Orchestrator) coalesce(key string, fn func() domain.RiskResult) domain.RiskResult {
	v, _, shared := o.group.Do(key, func() (any, error) {
		return fn(), nil
	})
	if shared {
		o.metrics.CoalescedResolutions.Inc()
	}
	return v.(domain.RiskResult)
}

// run walks the provider ladder in rank order. Each phase is skipped
// outright when its budget is already spent.
func (o *Orchestrator) run(ctx context.Context, coord domain.Coordinate, deadline time.Time) domain.RiskResult {
	spatialKey := domain.SpatialKeyFor(coord)

	if obs, ok := o.primaryPhase(ctx, coord, deadline); ok {
		o.writeBack(coord, obs)
		return domain.LiveResult(obs, domain.SourcePrimary, spatialKey)
	}

	if o.secondary != nil {
		if o.region != nil && !o.region.Covers(coord) {
			o.logger.Debug("secondary skipped, outside coverage", "spatial_key", spatialKey)
		} else if obs, ok := o.secondaryPhase(ctx, coord, deadline); ok {
			o.writeBack(coord, obs)
			return domain.LiveResult(obs, domain.SourceSecondary, spatialKey)
		}
	}

	if remaining := deadline.Sub(o.clock.Now()); remaining > 0 {
		cctx, cancel := context.WithTimeout(ctx, min(o.budgets.Cache, remaining))
		obs, ok := o.cache.Get(cctx, spatialKey)
		cancel()
		if ok {
			return domain.CachedResult(obs, spatialKey)
		}
	} else {
		o.logger.Debug("cache lookup skipped, deadline spent", "spatial_key", spatialKey)
	}

	return o.synthetic(coord)
}

// primaryPhase runs the primary provider with retries on transient
// failures, all inside one phase budget.
func (o *Orchestrator) primaryPhase(ctx context.Context, coord domain.Coordinate, deadline time.Time) (domain.Observation, bool) {
	if o.primary == nil {
		return domain.Observation{}, false
	}
	phaseDeadline := o.clock.Now().Add(o.budgets.Primary)
	if deadline.Before(phaseDeadline) {
		phaseDeadline = deadline
	}

	for attempt := 0; attempt < o.budgets.PrimaryAttempts; attempt++ {
		budget := phaseDeadline.Sub(o.clock.Now())
		if budget <= 0 {
			o.logger.Debug("primary budget exhausted", "attempts", attempt)
			break
		}

		obs, err := o.callProvider(ctx, o.primary, coord, budget)
		if err == nil {
			return obs, true
		}

		var provErr *domain.ProviderError
		if !errors.As(err, &provErr) || !provErr.Retryable() {
			o.logger.Warn("primary failed, not retrying", "error", err)
			break
		}
		o.logger.Debug("primary attempt failed", "attempt", attempt, "error", err)

		if attempt == o.budgets.PrimaryAttempts-1 {
			break
		}
		delay := o.retryDelay(attempt)
		if o.clock.Now().Add(delay).After(phaseDeadline) {
			o.logger.Debug("retry backoff exceeds primary budget, advancing")
			break
		}
		o.metrics.ProviderRetries.WithLabelValues(o.primary.Name()).Inc()
		if !o.sleep(ctx, delay) {
			break
		}
	}
	return domain.Observation{}, false
}

// secondaryPhase runs the secondary provider once, without retries.
func (o *Orchestrator) secondaryPhase(ctx context.Context, coord domain.Coordinate, deadline time.Time) (domain.Observation, bool) {
	budget := o.budgets.Secondary
	if remaining := deadline.Sub(o.clock.Now()); remaining < budget {
		budget = remaining
	}
	if budget <= 0 {
		o.logger.Debug("secondary skipped, deadline spent")
		return domain.Observation{}, false
	}

	obs, err := o.callProvider(ctx, o.secondary, coord, budget)
	if err != nil {
		o.logger.Warn("secondary failed", "error", err)
		return domain.Observation{}, false
	}
	return obs, true
}

// callProvider races one Fetch against the phase budget and caller
// cancellation. A result arriving after the timer fired is discarded;
// cancelling the context aborts the in-flight request.
func (o *Orchestrator) callProvider(ctx context.Context, provider domain.RiskProvider, coord domain.Coordinate, budget time.Duration) (domain.Observation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := o.clock.Now()
	type outcome struct {
		obs domain.Observation
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		obs, err := provider.Fetch(ctx, coord)
		ch <- outcome{obs: obs, err: err}
	}()

	var out outcome
	select {
	case out = <-ch:
	case <-o.clock.After(budget):
		cancel()
		out.err = &domain.ProviderError{
			Kind: domain.ProviderTimeout, Provider: provider.Name(),
			Message: fmt.Sprintf("no answer within %s", budget),
		}
	case <-ctx.Done():
		out.err = &domain.ProviderError{
			Kind: domain.ProviderTimeout, Provider: provider.Name(),
			Message: "caller cancelled", Cause: ctx.Err(),
		}
	}

	o.metrics.ProviderDuration.WithLabelValues(provider.Name()).Observe(o.clock.Since(start).Seconds())
	o.metrics.ProviderRequests.WithLabelValues(provider.Name(), outcomeLabel(out.err)).Inc()
	return out.obs, out.err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return string(provErr.Kind)
	}
	return "unavailable"
}

// retryDelay is base·2^attempt with ±25% jitter.
func (o *Orchestrator) retryDelay(attempt int) time.Duration {
	base := o.budgets.RetryBase << attempt
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(base) * jitter)
}

// sleep waits out a backoff delay unless the caller gives up first.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-o.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// writeBack queues an asynchronous cache write. The resolution result
// has already been decided; a failed write only costs a future hit.
func (o *Orchestrator) writeBack(coord domain.Coordinate, obs domain.Observation) {
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
		defer cancel()
		if err := o.cache.Put(ctx, coord, obs); err != nil {
			o.logger.Warn("cache write-back failed", "spatial_key", domain.SpatialKeyFor(coord), "error", err)
		}
	}()
}

// publish queues an assessment event for the resolution.
func (o *Orchestrator) publish(result domain.RiskResult) {
	if o.publisher == nil {
		return
	}
	assessment := domain.NewAssessment(result, o.clock.Now())
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
		defer cancel()
		if err := o.publisher.Publish(ctx, assessment); err != nil {
			o.metrics.AssessmentErrors.Inc()
			o.logger.Warn("assessment publish failed", "spatial_key", assessment.SpatialKey, "error", err)
			return
		}
		o.metrics.AssessmentPublished.Inc()
	}()
}

func (o *Orchestrator) synthetic(coord domain.Coordinate) domain.RiskResult {
	spatialKey := domain.SpatialKeyFor(coord)
	obs := domain.SyntheticObservation(spatialKey, o.clock.Now())
	return domain.SyntheticResult(obs, spatialKey)
}

// finish records metrics, logs, and publishes one decided resolution.
func (o *Orchestrator) finish(result domain.RiskResult, start time.Time) {
	o.metrics.Resolutions.WithLabelValues(string(result.Source)).Inc()
	o.metrics.ResolutionDuration.Observe(o.clock.Since(start).Seconds())
	o.logger.Info("risk resolved",
		"spatial_key", result.SpatialKey,
		"level", string(result.Level),
		"source", string(result.Source),
		"freshness", string(result.Freshness),
		"elapsed", o.clock.Since(start),
	)
	o.publish(result)
}
