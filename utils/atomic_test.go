package utils

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateAndGet_ConcurrentIncrements(t *testing.T) {
	var p atomic.Pointer[int]
	zero := 0
	p.Store(&zero)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UpdateAndGet(&p, func(old *int) *int {
				next := *old + 1
				return &next
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, *p.Load())
}

func TestUpdateAndGet_NoOpKeepsPointer(t *testing.T) {
	var p atomic.Pointer[string]
	value := "same"
	p.Store(&value)

	prev, next := UpdateAndGet(&p, func(old *string) *string { return old })
	assert.Same(t, prev, next)
	assert.Same(t, &value, p.Load())
}
