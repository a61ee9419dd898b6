package lru_cache

import (
	"fmt"
	"strings"
)

type entry[K, V any] struct {
	key   K
	value V
}

// ArrayCache is a fixed capacity cache ordered from most to least recently used.
// It is not safe for concurrent use, see ComputingCache.
type ArrayCache[K, V any] struct {
	capacity int
	entries  []entry[K, V]
	equal    func(a, b K) bool
}

// New creates a cache which compares keys with ==.
func New[K comparable, V any](capacity int) *ArrayCache[K, V] {
	return NewWithEquality[K, V](capacity, func(a, b K) bool { return a == b })
}

// NewWithEquality creates a cache whose keys are matched by equal, so that keys which
// differ in irrelevant detail can share an entry.
func NewWithEquality[K, V any](capacity int, equal func(a, b K) bool) *ArrayCache[K, V] {
	if capacity < 1 {
		panic(fmt.Sprintf("lru_cache: capacity must be positive, was %d", capacity))
	}
	return &ArrayCache[K, V]{
		capacity: capacity,
		entries:  make([]entry[K, V], 0, capacity),
		equal:    equal,
	}
}

// Put stores value as the most recently used entry, evicting the least recently used one when full.
func (c *ArrayCache[K, V]) Put(key K, value V) {
	if idx := c.indexOf(key); idx != -1 {
		c.moveToFront(idx)
	} else if len(c.entries) < c.capacity {
		c.entries = append(c.entries, entry[K, V]{})
		c.moveToFront(len(c.entries) - 1)
	} else {
		c.moveToFront(c.capacity - 1)
	}
	c.entries[0] = entry[K, V]{key: key, value: value}
}

// Get returns the value for key and promotes it to most recently used.
func (c *ArrayCache[K, V]) Get(key K) (V, bool) {
	idx := c.indexOf(key)
	if idx == -1 {
		var zero V
		return zero, false
	}
	value := c.entries[idx].value
	c.moveToFront(idx)
	return value, true
}

func (c *ArrayCache[K, V]) Len() int { return len(c.entries) }

func (c *ArrayCache[K, V]) indexOf(key K) int {
	for i := range c.entries {
		if c.equal(c.entries[i].key, key) {
			return i
		}
	}
	return -1
}

func (c *ArrayCache[K, V]) moveToFront(idx int) {
	if idx == 0 {
		return
	}
	front := c.entries[idx]
	copy(c.entries[1:idx+1], c.entries[:idx])
	c.entries[0] = front
}

// String lists entries as `key=value`, most recently used first.
func (c *ArrayCache[K, V]) String() string {
	parts := make([]string, len(c.entries))
	for i, e := range c.entries {
		parts[i] = fmt.Sprintf("%v=%v", e.key, e.value)
	}
	return strings.Join(parts, " ")
}
