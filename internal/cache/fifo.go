// Package cache holds the bounded extraction cache.
package cache

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FIFO is a fixed-capacity map that evicts the oldest inserted key.
// Re-putting an existing key updates its value without moving it.
type FIFO[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	entries  *orderedmap.OrderedMap[K, V]
}

// NewFIFO returns an empty cache. A capacity below 1 is treated as 1.
func NewFIFO[K comparable, V any](capacity int) *FIFO[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFO[K, V]{
		capacity: capacity,
		entries:  orderedmap.New[K, V](),
	}
}

// Get returns the value stored for key.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key)
}

// Put stores value and evicts the oldest entry when over capacity. The
// insert and the eviction happen under one lock.
func (c *FIFO[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Set(key, value)
	for c.entries.Len() > c.capacity {
		c.entries.Delete(c.entries.Oldest().Key)
	}
}

// Len returns the number of entries.
func (c *FIFO[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *FIFO[K, V]) Capacity() int { return c.capacity }
