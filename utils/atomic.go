package utils

import "sync/atomic"

// UpdateAndGet applies update to the value held by p until a compare-and-swap succeeds.
// It returns the value update was applied to and the value that was stored.
// When update returns its argument unchanged nothing is stored.
func UpdateAndGet[T any](p *atomic.Pointer[T], update func(*T) *T) (prev *T, next *T) {
	for {
		prev = p.Load()
		next = update(prev)
		if next == prev || p.CompareAndSwap(prev, next) {
			return prev, next
		}
	}
}
