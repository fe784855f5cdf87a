package arcgis

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
)

// CachedService wraps an NHDService with in-memory LRU caches, so repeated
// observations at the same site reuse earlier query results.
type CachedService struct {
	inner     domain.NHDService
	flowlines *lruCache[[]domain.Flowline]
	waterbody *lruCache[*domain.Waterbody]
	metrics   *observability.Metrics
}

// NewCachedService creates a cache decorator around an NHD service.
func NewCachedService(inner domain.NHDService, maxEntries int, metrics *observability.Metrics) *CachedService {
	return &CachedService{
		inner:     inner,
		flowlines: newLRUCache[[]domain.Flowline](maxEntries),
		waterbody: newLRUCache[*domain.Waterbody](maxEntries),
		metrics:   metrics,
	}
}

func (c *CachedService) FlowlinesNear(ctx context.Context, version domain.NHDVersion, p orb.Point, bufferMeters int) ([]domain.Flowline, error) {
	key := fmt.Sprintf("near:%s:%.6f,%.6f:%d", version, p.Lon(), p.Lat(), bufferMeters)
	if result, ok := lookup(c.flowlines, key, queryFlowlines, c.metrics); ok {
		return result, nil
	}
	result, err := c.inner.FlowlinesNear(ctx, version, p, bufferMeters)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so a transient empty response can be retried.
	if len(result) > 0 {
		c.flowlines.put(key, result)
	}
	return result, nil
}

func (c *CachedService) FlowlinesInWaterbody(ctx context.Context, version domain.NHDVersion, waterbodyID string) ([]domain.Flowline, error) {
	key := fmt.Sprintf("wb:%s:%s", version, waterbodyID)
	if result, ok := lookup(c.flowlines, key, queryWaterbodyFlowlines, c.metrics); ok {
		return result, nil
	}
	result, err := c.inner.FlowlinesInWaterbody(ctx, version, waterbodyID)
	if err != nil {
		return result, err
	}
	if len(result) > 0 {
		c.flowlines.put(key, result)
	}
	return result, nil
}

func (c *CachedService) WaterbodyAt(ctx context.Context, version domain.NHDVersion, p orb.Point) (*domain.Waterbody, error) {
	key := fmt.Sprintf("at:%s:%.6f,%.6f", version, p.Lon(), p.Lat())
	if result, ok := lookup(c.waterbody, key, queryWaterbody, c.metrics); ok {
		return result, nil
	}
	result, err := c.inner.WaterbodyAt(ctx, version, p)
	if err != nil {
		return result, err
	}
	if result != nil {
		c.waterbody.put(key, result)
	}
	return result, nil
}

func lookup[V any](cache *lruCache[V], key, query string, metrics *observability.Metrics) (V, bool) {
	v, ok := cache.get(key)
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.NHDCache.WithLabelValues(query, result).Inc()
	return v, ok
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
