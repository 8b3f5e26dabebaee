package core

import (
	"container/list"
	"sync"
)

// HeaderCache is a bounded LRU cache of parsed file headers, keyed by file
// path plus the file's modification time (so a file rewritten between runs
// never serves a stale header). Adapted from the teacher's ChartCache
// (pkg/v1/cache.go) — same container/list LRU shape, same Get/Add/Remove/
// Clear/Stats surface — repointed from chart names to (path, mtime) keys
// and from chart payloads to *Header.
type HeaderCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[headerCacheKey]*list.Element

	hits, misses int
}

type headerCacheKey struct {
	path  string
	mtime int64 // unix nanos
}

type headerCacheEntry struct {
	key    headerCacheKey
	header *Header
}

// NewHeaderCache builds a cache holding at most capacity headers.
func NewHeaderCache(capacity int) *HeaderCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &HeaderCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[headerCacheKey]*list.Element),
	}
}

// Get returns the cached header for (path, mtimeUnixNano), promoting it to
// most-recently-used on a hit.
func (c *HeaderCache) Get(path string, mtimeUnixNano int64) (*Header, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := headerCacheKey{path, mtimeUnixNano}
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return el.Value.(*headerCacheEntry).header, true
}

// Add inserts or refreshes the cached header for (path, mtimeUnixNano),
// evicting the least-recently-used entry if the cache is at capacity.
func (c *HeaderCache) Add(path string, mtimeUnixNano int64, h *Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := headerCacheKey{path, mtimeUnixNano}
	if el, ok := c.items[key]; ok {
		el.Value.(*headerCacheEntry).header = h
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&headerCacheEntry{key: key, header: h})
	c.items[key] = el

	for c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

// Remove drops any cached header for path regardless of mtime, used when a
// file is known to have been invalidated outright.
func (c *HeaderCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.items {
		if key.path == path {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
}

// Clear empties the cache.
func (c *HeaderCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[headerCacheKey]*list.Element)
}

// Stats reports cumulative hit/miss counts and the current entry count.
func (c *HeaderCache) Stats() (hits, misses, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.ll.Len()
}

func (c *HeaderCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*headerCacheEntry).key)
}
