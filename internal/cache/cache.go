// Package cache provides a generic spatial cache keyed by precision-5
// geohash cells. Entries are persisted through storage.Store inside a
// versioned JSON envelope, bounded by a TTL and a maximum entry count
// with least-recently-accessed eviction.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/storage"
)

// formatVersion is written into every envelope. Entries carrying any
// other version are treated as corrupt and purged on read.
const formatVersion = "1"

const (
	defaultNamespace  = "risk"
	defaultTTL        = 6 * time.Hour
	defaultMaxEntries = 100
)

// envelope wraps a cached payload with enough context to validate it
// on the way back out.
type envelope struct {
	FormatVersion string          `json:"format_version"`
	SpatialKey    string          `json:"spatial_key"`
	StoredAt      time.Time       `json:"stored_at"`
	Payload       json.RawMessage `json:"payload"`
}

// metadata is the cache's bookkeeping record, persisted under its own
// key so entry counts and access order survive restarts.
type metadata struct {
	TotalEntries int                  `json:"total_entries"`
	LastCleanup  time.Time            `json:"last_cleanup"`
	LastAccessed map[string]time.Time `json:"last_accessed"`
}

// Options configures a SpatialCache. Zero values fall back to the
// documented defaults.
type Options struct {
	// Namespace prefixes every storage key. The cache assumes it is the
	// only writer within its namespace.
	Namespace string
	// TTL bounds entry age; entries older than this are purged on read.
	TTL time.Duration
	// MaxEntries bounds the entry count; inserting beyond it evicts the
	// least recently accessed entry.
	MaxEntries int

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
}

// SpatialCache stores one value of type T per geohash cell.
type SpatialCache[T any] struct {
	store      storage.Store
	namespace  string
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	mu   sync.Mutex
	meta *metadata
}

// New creates a SpatialCache backed by store.
func New[T any](store storage.Store, opts Options) *SpatialCache[T] {
	if opts.Namespace == "" {
		opts.Namespace = defaultNamespace
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &SpatialCache[T]{
		store:      store,
		namespace:  opts.Namespace,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
	}
}

func (c *SpatialCache[T]) entryKey(spatialKey string) string {
	return c.namespace + ":entry:" + spatialKey
}

func (c *SpatialCache[T]) metaKey() string {
	return c.namespace + ":meta"
}

// Get looks up the entry for spatialKey. It never returns an error:
// absent, expired, and corrupt entries are all reported as misses, and
// expired or corrupt entries are purged on the way.
func (c *SpatialCache[T]) Get(ctx context.Context, spatialKey string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMeta(ctx)

	raw, ok, err := c.store.GetString(ctx, c.entryKey(spatialKey))
	if err != nil {
		c.logger.Warn("cache read failed", "spatial_key", spatialKey, "error", err)
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return zero, false
	}
	if !ok {
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.purgeCorrupt(ctx, spatialKey, fmt.Errorf("decode envelope: %w", err))
		return zero, false
	}
	if env.FormatVersion != formatVersion {
		c.purgeCorrupt(ctx, spatialKey, &domain.CacheError{
			Kind:    domain.CacheUnsupportedVersion,
			Message: fmt.Sprintf("format version %q", env.FormatVersion),
		})
		return zero, false
	}
	if env.SpatialKey != spatialKey {
		c.purgeCorrupt(ctx, spatialKey, fmt.Errorf("envelope key %q does not match", env.SpatialKey))
		return zero, false
	}

	if c.clock.Now().UTC().Sub(env.StoredAt) > c.ttl {
		c.removeLocked(ctx, spatialKey)
		c.metrics.CacheLookups.WithLabelValues("expired").Inc()
		return zero, false
	}

	var value T
	if err := json.Unmarshal(env.Payload, &value); err != nil {
		c.purgeCorrupt(ctx, spatialKey, fmt.Errorf("decode payload: %w", err))
		return zero, false
	}

	c.meta.LastAccessed[spatialKey] = c.clock.Now().UTC()
	if err := c.persistMeta(ctx); err != nil {
		c.logger.Warn("cache metadata write failed", "error", err)
	}
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return value, true
}

// Put stores value under the spatial key of coord, evicting the least
// recently accessed entry first when a new key would exceed the size
// bound.
func (c *SpatialCache[T]) Put(ctx context.Context, coord domain.Coordinate, value T) error {
	spatialKey := domain.SpatialKeyFor(coord)

	payload, err := json.Marshal(value)
	if err != nil {
		return &domain.CacheError{Kind: domain.CacheSerialization, Message: "encode payload", Cause: err}
	}
	env := envelope{
		FormatVersion: formatVersion,
		SpatialKey:    spatialKey,
		StoredAt:      c.clock.Now().UTC(),
		Payload:       payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return &domain.CacheError{Kind: domain.CacheSerialization, Message: "encode envelope", Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMeta(ctx)

	if _, exists := c.meta.LastAccessed[spatialKey]; !exists && len(c.meta.LastAccessed) >= c.maxEntries {
		c.evictOldestLocked(ctx)
	}

	if err := c.store.SetString(ctx, c.entryKey(spatialKey), string(raw)); err != nil {
		return &domain.CacheError{Kind: domain.CacheStorage, Message: "write entry", Cause: err}
	}

	c.meta.LastAccessed[spatialKey] = c.clock.Now().UTC()
	if err := c.persistMeta(ctx); err != nil {
		return &domain.CacheError{Kind: domain.CacheStorage, Message: "write metadata", Cause: err}
	}
	return nil
}

// Remove deletes the entry for spatialKey. Removing an absent key is
// not an error.
func (c *SpatialCache[T]) Remove(ctx context.Context, spatialKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMeta(ctx)

	if err := c.store.Delete(ctx, c.entryKey(spatialKey)); err != nil {
		return &domain.CacheError{Kind: domain.CacheStorage, Message: "delete entry", Cause: err}
	}
	delete(c.meta.LastAccessed, spatialKey)
	if err := c.persistMeta(ctx); err != nil {
		return &domain.CacheError{Kind: domain.CacheStorage, Message: "write metadata", Cause: err}
	}
	return nil
}

// Clear deletes every entry in the cache's namespace.
func (c *SpatialCache[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMeta(ctx)

	for key := range c.meta.LastAccessed {
		if err := c.store.Delete(ctx, c.entryKey(key)); err != nil {
			return &domain.CacheError{Kind: domain.CacheStorage, Message: "delete entry", Cause: err}
		}
		delete(c.meta.LastAccessed, key)
	}
	c.meta.LastCleanup = c.clock.Now().UTC()
	if err := c.persistMeta(ctx); err != nil {
		return &domain.CacheError{Kind: domain.CacheStorage, Message: "write metadata", Cause: err}
	}
	return nil
}

// Sweep removes every entry whose age exceeds the TTL, along with any
// that fail validation, so stale observations do not linger just
// because nothing reads them. Returns the number of entries removed.
func (c *SpatialCache[T]) Sweep(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMeta(ctx)

	now := c.clock.Now().UTC()
	removed := 0
	for key := range c.meta.LastAccessed {
		raw, ok, err := c.store.GetString(ctx, c.entryKey(key))
		if err != nil {
			return removed, &domain.CacheError{Kind: domain.CacheStorage, Message: "read entry", Cause: err}
		}

		drop := !ok // bookkeeping points at a missing entry
		if ok {
			var env envelope
			if err := json.Unmarshal([]byte(raw), &env); err != nil || env.FormatVersion != formatVersion {
				drop = true
			} else {
				drop = now.Sub(env.StoredAt) > c.ttl
			}
		}
		if !drop {
			continue
		}

		if err := c.store.Delete(ctx, c.entryKey(key)); err != nil {
			return removed, &domain.CacheError{Kind: domain.CacheStorage, Message: "delete entry", Cause: err}
		}
		delete(c.meta.LastAccessed, key)
		removed++
	}

	c.meta.LastCleanup = now
	if err := c.persistMeta(ctx); err != nil {
		return removed, &domain.CacheError{Kind: domain.CacheStorage, Message: "write metadata", Cause: err}
	}
	return removed, nil
}

// Len reports the number of live entries.
func (c *SpatialCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMeta(context.Background())
	return len(c.meta.LastAccessed)
}

// ensureMeta lazily loads the persisted metadata record. A missing or
// undecodable record starts fresh rather than failing the cache open.
func (c *SpatialCache[T]) ensureMeta(ctx context.Context) {
	if c.meta != nil {
		return
	}
	meta := &metadata{LastAccessed: make(map[string]time.Time)}
	raw, ok, err := c.store.GetString(ctx, c.metaKey())
	if err != nil {
		c.logger.Warn("cache metadata read failed", "error", err)
	} else if ok {
		if err := json.Unmarshal([]byte(raw), meta); err != nil {
			c.logger.Warn("cache metadata corrupt, starting fresh", "error", err)
			meta = &metadata{LastAccessed: make(map[string]time.Time)}
		}
		if meta.LastAccessed == nil {
			meta.LastAccessed = make(map[string]time.Time)
		}
	}
	c.meta = meta
	c.metrics.CacheEntries.Set(float64(len(c.meta.LastAccessed)))
}

func (c *SpatialCache[T]) persistMeta(ctx context.Context) error {
	c.meta.TotalEntries = len(c.meta.LastAccessed)
	c.metrics.CacheEntries.Set(float64(c.meta.TotalEntries))
	raw, err := json.Marshal(c.meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return c.store.SetString(ctx, c.metaKey(), string(raw))
}

// purgeCorrupt removes an entry that failed validation and counts the
// lookup as corrupt.
func (c *SpatialCache[T]) purgeCorrupt(ctx context.Context, spatialKey string, cause error) {
	c.logger.Warn("cache entry corrupt, removing", "spatial_key", spatialKey, "error", cause)
	c.removeLocked(ctx, spatialKey)
	c.metrics.CacheLookups.WithLabelValues("corrupt").Inc()
}

// removeLocked deletes an entry and its bookkeeping. Callers hold c.mu.
func (c *SpatialCache[T]) removeLocked(ctx context.Context, spatialKey string) {
	if err := c.store.Delete(ctx, c.entryKey(spatialKey)); err != nil {
		c.logger.Warn("cache entry delete failed", "spatial_key", spatialKey, "error", err)
	}
	delete(c.meta.LastAccessed, spatialKey)
	c.meta.LastCleanup = c.clock.Now().UTC()
	if err := c.persistMeta(ctx); err != nil {
		c.logger.Warn("cache metadata write failed", "error", err)
	}
}

// evictOldestLocked removes the entry with the oldest last access.
// Callers hold c.mu.
func (c *SpatialCache[T]) evictOldestLocked(ctx context.Context) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, at := range c.meta.LastAccessed {
		if oldestKey == "" || at.Before(oldestAt) {
			oldestKey = key
			oldestAt = at
		}
	}
	if oldestKey == "" {
		return
	}
	c.logger.Debug("cache evicting least recently accessed entry", "spatial_key", oldestKey)
	c.removeLocked(ctx, oldestKey)
	c.metrics.CacheEvictions.Inc()
}
