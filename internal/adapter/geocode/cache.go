package geocode

import (
	"context"
	"strings"
	"sync"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

// CachedGeocoder wraps a PlaceGeocoder with an in-memory LRU cache.
// Place names rarely move; caching spares the upstream API repeated
// lookups for the same query.
type CachedGeocoder struct {
	inner domain.PlaceGeocoder
	cache *lruCache
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.PlaceGeocoder, maxEntries int) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedGeocoder) Lookup(ctx context.Context, query string) (domain.Place, error) {
	key := cacheKey(query)
	if place, ok := c.cache.get(key); ok {
		return place, nil
	}
	place, err := c.inner.Lookup(ctx, query)
	if err != nil {
		return place, err
	}
	// Only cache matches so a "no result" answer can be retried.
	if place != (domain.Place{}) {
		c.cache.put(key, place)
	}
	return place, nil
}

// cacheKey folds case and surrounding whitespace so "Aviemore" and
// " aviemore" share an entry.
func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// lruCache is a simple thread-safe LRU cache for places.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Place
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Place{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Place) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
