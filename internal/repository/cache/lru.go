package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/tile"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/metrics"
)

const defaultLowMemoryFraction = 0.5

type entry struct {
	key        tile.Key
	blob       tile.Blob
	lastAccess time.Time
}

// LRUCache is a byte budgeted tile cache. The front of the list is the most
// recently used entry, so the back is always the oldest lastAccess with ties in
// insertion order.
type LRUCache struct {
	mu                sync.Mutex
	items             map[tile.Key]*list.Element
	lru               *list.List
	size              int64
	budget            int64
	lowMemoryFraction float64
	now               func() time.Time
	stats             Stats
	logger            logger.Logger
}

var _ TileCache = (*LRUCache)(nil)

type Option func(*LRUCache)

// WithLowMemoryFraction sets the share of the budget kept by OnLowMemory.
func WithLowMemoryFraction(f float64) Option {
	return func(c *LRUCache) {
		if f >= 0 && f < 1 {
			c.lowMemoryFraction = f
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *LRUCache) {
		c.now = now
	}
}

func NewLRUCache(budget int64, l logger.Logger, opts ...Option) *LRUCache {
	c := &LRUCache{
		items:             make(map[tile.Key]*list.Element),
		lru:               list.New(),
		budget:            budget,
		lowMemoryFraction: defaultLowMemoryFraction,
		now:               time.Now,
		logger:            l,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *LRUCache) Get(k tile.Key) (tile.Blob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[k]
	if !ok {
		c.stats.Misses++
		metrics.CacheMisses.Inc()
		return tile.Blob{}, false
	}

	e := elem.Value.(*entry)
	e.lastAccess = c.now()
	c.lru.MoveToFront(elem)
	c.stats.Hits++
	metrics.CacheHits.Inc()

	return e.blob, true
}

// Peek looks an entry up without touching its recency.
func (c *LRUCache) Peek(k tile.Key) (tile.Blob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[k]
	if !ok {
		return tile.Blob{}, false
	}
	return elem.Value.(*entry).blob, true
}

func (c *LRUCache) Put(k tile.Key, b tile.Blob) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics.CacheStores.Inc()

	if elem, ok := c.items[k]; ok {
		e := elem.Value.(*entry)
		c.size += b.Size() - e.blob.Size()
		e.blob = b
		e.lastAccess = c.now()
		c.lru.MoveToFront(elem)
	} else {
		e := &entry{key: k, blob: b, lastAccess: c.now()}
		c.items[k] = c.lru.PushFront(e)
		c.size += b.Size()
	}

	// the new entry counts too; a blob larger than the whole budget evicts itself
	c.evictTo(c.budget)
}

func (c *LRUCache) Flush(source string, zoom int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if e.key.Source == source && (zoom == tile.AllZooms || e.key.Zoom == zoom) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	c.logger.Debug("cache flush", "source", source, "zoom", zoom, "removed", removed)
	metrics.CacheBytes.Set(float64(c.size))

	return removed
}

func (c *LRUCache) OnLowMemory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := int64(float64(c.budget) * c.lowMemoryFraction)
	before := c.size
	c.evictTo(target)

	c.logger.Info("cache trimmed on low memory", "before", before, "after", c.size, "target", target)
}

func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[tile.Key]*list.Element)
	c.lru.Init()
	c.size = 0
	metrics.CacheBytes.Set(0)
}

func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.items)
	s.Bytes = c.size
	s.Budget = c.budget
	return s
}

func (c *LRUCache) evictTo(limit int64) {
	for c.size > limit {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.stats.Evictions++
		metrics.CacheEvictions.Inc()
	}
	metrics.CacheBytes.Set(float64(c.size))
}

func (c *LRUCache) removeElement(elem *list.Element) {
	e := c.lru.Remove(elem).(*entry)
	delete(c.items, e.key)
	c.size -= e.blob.Size()
}
