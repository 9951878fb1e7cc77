// Package cache provides the bounded LRU used by the lazy shared
// string table. Resolution of a string index is expensive (it reparses
// a byte window of sharedStrings.xml), so resolved values are kept hot
// here.
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity bounds the shared string cache when the caller does
// not choose a size.
const DefaultCapacity = 10000

type entry struct {
	key   int
	value string
}

// LRU is a thread-safe least-recently-used cache keyed by string
// table index. It is safe for concurrent use by parallel sheet
// parsers.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[int]*list.Element
}

// New creates an LRU with the given capacity. Capacities below 1 are
// raised to 1.
func New(capacity int) *LRU {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[int]*list.Element),
	}
}

// Get returns the cached value for key and marks it recently used.
func (c *LRU) Get(key int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Set stores key=value, evicting the least recently used entry when
// the cache is full.
func (c *LRU) Set(key int, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry{key: key, value: value})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the configured capacity.
func (c *LRU) Cap() int {
	return c.capacity
}

// Clear drops every entry.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[int]*list.Element)
}
