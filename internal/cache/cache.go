// Package cache implements the bounded LRU block cache of spec.md §4.7:
// decoded block bytes keyed by (file number, offset), evicted by recency
// once the sum of cached lengths exceeds the configured byte budget.
//
// The LRU recency list is a doubly-linked list (as in every textbook LRU);
// what it is grounded on from the retrieval pack is the *index* structure
// mapping a key to its list node, which instead of a plain Go map uses
// github.com/cockroachdb/swiss -- an open-addressing hash map -- since cache
// lookups are by unordered (fileNum, offset) pairs, unlike the MemTable's
// ordered key space, so a hash index rather than a tree/skiplist is the
// right fit for this one component.
package cache

import (
	"sync"

	"github.com/cockroachdb/swiss"
)

// Key identifies a cached block.
type Key struct {
	FileNum uint64
	Offset  uint64
}

type entry struct {
	key   Key
	value []byte
	prev  *entry
	next  *entry
}

// Stats is a structured snapshot of cache activity, matching
// original_source's src/cache/lru.rs CacheStats (rather than exposing only
// a hit-rate float).
type Stats struct {
	Lookups    uint64
	Hits       uint64
	Misses     uint64
	Insertions uint64
	Evictions  uint64
}

// HitRate returns Hits/Lookups, or 0 if there have been no lookups.
func (s Stats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups)
}

// Cache is a thread-safe, bounded LRU of decoded block bytes. A zero
// capacity disables caching entirely: Get always misses and Insert is a
// no-op, matching spec.md §4.7.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	index    *swiss.Map[Key, *entry]
	head     *entry // most recently used
	tail     *entry // least recently used
	stats    Stats
}

// New creates a Cache with the given byte capacity.
func New(capacityBytes int64) *Cache {
	return &Cache{
		capacity: capacityBytes,
		index:    swiss.New[Key, *entry](16),
	}
}

func (c *Cache) unlink(e *entry) {
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
	e.prev, e.next = nil, nil
}

func (c *Cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

// Get returns the cached bytes for key, updating its recency. A zero
// capacity cache always misses.
func (c *Cache) Get(key Key) ([]byte, bool) {
	if c.capacity <= 0 {
		c.mu.Lock()
		c.stats.Lookups++
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Lookups++
	e, ok := c.index.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	if e != c.head {
		c.unlink(e)
		c.pushFront(e)
	}
	return e.value, true
}

// Insert adds key->value, evicting least-recently-used entries until the
// cache is back under capacity. An entry whose own length exceeds the total
// capacity is never cached. A zero capacity cache is a no-op.
func (c *Cache) Insert(key Key, value []byte) {
	if c.capacity <= 0 || int64(len(value)) > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index.Get(key); ok {
		c.size -= int64(len(old.value))
		c.unlink(old)
		c.index.Delete(key)
	}

	e := &entry{key: key, value: value}
	c.index.Put(key, e)
	c.pushFront(e)
	c.size += int64(len(value))
	c.stats.Insertions++

	for c.size > c.capacity && c.tail != nil {
		victim := c.tail
		c.unlink(victim)
		c.index.Delete(victim.key)
		c.size -= int64(len(victim.value))
		c.stats.Evictions++
	}
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ResetStats zeroes the counters without affecting cached contents.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

// Clear evicts every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = swiss.New[Key, *entry](16)
	c.head, c.tail = nil, nil
	c.size = 0
}
