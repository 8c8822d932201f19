package vod

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry is the memoized product of parsing a .meta file: the
// generated ftyp+moov+mdat-header and the corresponding mdat payload size.
type cacheEntry struct {
	buf      []byte
	mdatSize int64
	modTime  time.Time
}

// Cache is a bounded LRU cache of generated moov bytes keyed by recording
// path, avoiding re-parsing the sample index on every range request a
// browser makes while scrubbing a recording. A cached entry is discarded
// if the backing .meta file's modification time has changed since it was
// generated.
type Cache struct {
	mu       sync.Mutex
	maxItems int
	ll       *list.List
	items    map[string]*list.Element
}

type cacheItem struct {
	key   string
	entry *cacheEntry
}

// DefaultCacheSize is the number of entries kept by a new Cache.
const DefaultCacheSize = 10

// NewCache returns a Cache holding up to maxItems entries.
func NewCache(maxItems int) *Cache {
	if maxItems <= 0 {
		maxItems = DefaultCacheSize
	}
	return &Cache{
		maxItems: maxItems,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// get returns the cached entry for key if present and still fresh
// relative to modTime, promoting it to most-recently-used.
func (c *Cache) get(key string, modTime time.Time) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil
	}
	item := el.Value.(*cacheItem) //nolint:forcetypeassert
	if !item.entry.modTime.Equal(modTime) {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil
	}
	c.ll.MoveToFront(el)
	return item.entry
}

// add inserts or replaces the cached entry for key, evicting the least
// recently used entry if the cache is full.
func (c *Cache) add(key string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheItem).entry = entry //nolint:forcetypeassert
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&cacheItem{key: key, entry: entry})
	c.items[key] = el

	if c.ll.Len() > c.maxItems {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheItem).key) //nolint:forcetypeassert
		}
	}
}
