// Package image turns page bitmaps into strings the terminal can draw,
// either through an inline graphics protocol or as half-block cells.
// Rendered output is kept in a byte-bounded LRU so redrawing an unchanged
// page costs a map lookup.
package image

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
)

// CacheKey identifies one rendered picture. ID is chosen by the caller and
// must change whenever the pixels do.
type CacheKey struct {
	ID       string
	Protocol string
	Cols     int
	Rows     int
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%dx%d", k.Protocol, k.ID, k.Cols, k.Rows)
}

// CacheStats reports hit/miss counts for the debug footer.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
	SizeBytes int64
}

type cacheEntry struct {
	key      CacheKey
	rendered string
}

// Cache is a thread-safe LRU of rendered strings bounded by total bytes.
type Cache struct {
	mu        sync.Mutex
	items     map[CacheKey]*list.Element
	order     *list.List // front is most recent
	maxBytes  int64
	usedBytes int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache creates a cache holding at most maxMB megabytes. Non-positive
// sizes use 32 MB.
func NewCache(maxMB int) *Cache {
	if maxMB <= 0 {
		maxMB = 32
	}
	return &Cache{
		items:    make(map[CacheKey]*list.Element),
		order:    list.New(),
		maxBytes: int64(maxMB) << 20,
	}
}

func (c *Cache) Get(key CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*cacheEntry).rendered, true
}

// Put stores rendered under key. A string larger than the whole budget is
// not stored.
func (c *Cache) Put(key CacheKey, rendered string) {
	size := int64(len(rendered))
	if size > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*cacheEntry)
		c.usedBytes += size - int64(len(e.rendered))
		e.rendered = rendered
		c.order.MoveToFront(elem)
	} else {
		c.items[key] = c.order.PushFront(&cacheEntry{key: key, rendered: rendered})
		c.usedBytes += size
	}
	for c.usedBytes > c.maxBytes && c.order.Len() > 1 {
		c.removeLocked(c.order.Back())
	}
}

// Invalidate clears all entries. Counters are kept.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[CacheKey]*list.Element)
	c.order.Init()
	c.usedBytes = 0
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.order.Len(),
		SizeBytes: c.usedBytes,
	}
}

// removeLocked unlinks elem. Caller holds c.mu.
func (c *Cache) removeLocked(elem *list.Element) {
	e := c.order.Remove(elem).(*cacheEntry)
	delete(c.items, e.key)
	c.usedBytes -= int64(len(e.rendered))
	c.evictions.Add(1)
}
