package lru_cache

import (
	"sync"
	"time"
)

// ComputingCache wraps an ArrayCache with a lock and computes missing values on demand.
type ComputingCache[K, V any] struct {
	mutex   sync.Mutex
	backing *ArrayCache[K, V]
	compute func(K) (V, error)
	stats   Stats
}

// Stats tracks cache performance.
type Stats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
}

// HitRate is the share of requests served from the cache, in percent.
func (s Stats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalRequests) * 100
}

// NewComputing creates a thread-safe cache around compute. Errors from compute are
// returned to the caller and never cached.
func NewComputing[K, V any](capacity int, equal func(a, b K) bool, compute func(K) (V, error)) *ComputingCache[K, V] {
	return &ComputingCache[K, V]{
		backing: NewWithEquality[K, V](capacity, equal),
		compute: compute,
		stats:   Stats{LastResetTime: time.Now()},
	}
}

// Get returns the cached value for key, computing and storing it on a miss.
func (c *ComputingCache[K, V]) Get(key K) (V, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.stats.TotalRequests++
	if value, ok := c.backing.Get(key); ok {
		c.stats.CacheHits++
		return value, nil
	}
	c.stats.CacheMisses++
	value, err := c.compute(key)
	if err != nil {
		return value, err
	}
	c.backing.Put(key, value)
	return value, nil
}

// Stats returns a copy of the current counters.
func (c *ComputingCache[K, V]) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// ResetStats zeroes all counters.
func (c *ComputingCache[K, V]) ResetStats() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stats = Stats{LastResetTime: time.Now()}
}
