package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

func TestSweepRemovesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	c, store, clock := newTestCache(t, Options{TTL: 6 * time.Hour})

	old := []domain.Coordinate{
		mustCoordinate(t, 55.0, -3.0),
		mustCoordinate(t, 56.0, -3.0),
	}
	for _, coord := range old {
		require.NoError(t, c.Put(ctx, coord, sampleResult(domain.SpatialKeyFor(coord))))
	}

	clock.Advance(3 * time.Hour)
	fresh := mustCoordinate(t, 57.0, -3.0)
	require.NoError(t, c.Put(ctx, fresh, sampleResult(domain.SpatialKeyFor(fresh))))

	// The first two entries are now past the TTL, the third is not.
	clock.Advance(3*time.Hour + time.Minute)

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())

	for _, coord := range old {
		_, present, err := store.GetString(ctx, "risk:entry:"+domain.SpatialKeyFor(coord))
		require.NoError(t, err)
		assert.False(t, present, "expired entry should be deleted from the store")
	}
	_, ok := c.Get(ctx, domain.SpatialKeyFor(fresh))
	assert.True(t, ok)
}

func TestSweepDropsDanglingBookkeeping(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache(t, Options{})

	coord := mustCoordinate(t, 55.9533, -3.1883)
	key := domain.SpatialKeyFor(coord)
	require.NoError(t, c.Put(ctx, coord, sampleResult(key)))

	// Entry vanished out from under the bookkeeping.
	require.NoError(t, store.Delete(ctx, "risk:entry:"+key))

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())
}

func TestSweepWithNothingExpired(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t, Options{TTL: 6 * time.Hour})

	coord := mustCoordinate(t, 55.9533, -3.1883)
	require.NoError(t, c.Put(ctx, coord, sampleResult(domain.SpatialKeyFor(coord))))

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, c.Len())
}

func TestJanitorSweepsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, _, clock := newTestCache(t, Options{TTL: time.Hour})
	coord := mustCoordinate(t, 55.9533, -3.1883)
	require.NoError(t, c.Put(ctx, coord, sampleResult(domain.SpatialKeyFor(coord))))

	j := NewJanitor(c, 30*time.Minute, discardLogger(), clock)

	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	// Wait for the ticker to arm before moving time.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(61 * time.Minute)

	assert.Eventually(t, func() bool { return c.Len() == 0 },
		2*time.Second, 10*time.Millisecond, "janitor should sweep the expired entry")

	cancel()
	require.NoError(t, <-done)
}
