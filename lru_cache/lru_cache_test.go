package lru_cache

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayCache_Order(t *testing.T) {
	cache := New[string, int](3)
	assert.Equal(t, "", cache.String())
	cache.Put("a", 1)
	assert.Equal(t, "a=1", cache.String())
	cache.Put("b", 2)
	assert.Equal(t, "b=2 a=1", cache.String())

	value, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value)
	assert.Equal(t, "a=1 b=2", cache.String())

	cache.Put("b", 3)
	assert.Equal(t, "b=3 a=1", cache.String())

	cache.Put("c", 3)
	assert.Equal(t, "c=3 b=3 a=1", cache.String())

	cache.Put("d", 4)
	assert.Equal(t, "d=4 c=3 b=3", cache.String())
	assert.Equal(t, 3, cache.Len())

	_, ok = cache.Get("a")
	assert.False(t, ok)
}

func TestArrayCache_PluggableEquality(t *testing.T) {
	// keys which only differ in their suffix after ':' share an entry
	samePrefix := func(a, b string) bool {
		return strings.Split(a, ":")[0] == strings.Split(b, ":")[0]
	}
	cache := NewWithEquality[string, string](2, samePrefix)
	cache.Put("File.java:10", "src/File.java")

	value, ok := cache.Get("File.java:42")
	require.True(t, ok)
	assert.Equal(t, "src/File.java", value)

	_, ok = cache.Get("Other.java:10")
	assert.False(t, ok)
}

func TestArrayCache_CapacityOne(t *testing.T) {
	cache := New[int, int](1)
	cache.Put(1, 1)
	cache.Put(2, 2)
	assert.Equal(t, "2=2", cache.String())
	assert.Panics(t, func() { New[int, int](0) })
}

func TestComputingCache_Stats(t *testing.T) {
	computed := 0
	cache := NewComputing[string, int](2, func(a, b string) bool { return a == b }, func(key string) (int, error) {
		computed++
		return len(key), nil
	})

	for _, key := range []string{"a", "bb", "a", "bb", "ccc", "a"} {
		value, err := cache.Get(key)
		require.NoError(t, err)
		assert.Equal(t, len(key), value)
	}
	stats := cache.Stats()
	assert.Equal(t, int64(6), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.CacheHits)
	assert.Equal(t, int64(4), stats.CacheMisses)
	assert.Equal(t, 4, computed)
	assert.InDelta(t, 33.33, stats.HitRate(), 0.01)

	cache.ResetStats()
	assert.Equal(t, int64(0), cache.Stats().TotalRequests)
	assert.Equal(t, 0.0, cache.Stats().HitRate())
}

func TestComputingCache_ErrorsAreNotCached(t *testing.T) {
	fail := true
	cache := NewComputing[string, string](2, func(a, b string) bool { return a == b }, func(key string) (string, error) {
		if fail {
			return "", errors.New("boom")
		}
		return key, nil
	})
	_, err := cache.Get("x")
	require.Error(t, err)

	fail = false
	value, err := cache.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "x", value)
}

func TestComputingCache_Concurrent(t *testing.T) {
	cache := NewComputing[int, int](8, func(a, b int) bool { return a == b }, func(key int) (int, error) {
		return key * key, nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				value, err := cache.Get(j % 10)
				assert.NoError(t, err)
				assert.Equal(t, (j%10)*(j%10), value)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(1600), cache.Stats().TotalRequests)
}
