package write_tracker

import (
	"fmt"
	"sync/atomic"

	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/utils"
)

// FirstWrite is the first value written at a key, and where it came from.
type FirstWrite[V any] struct {
	Value V
	Call  call_stack.CallStack
}

// ConflictError means one key was written with two different values.
type ConflictError struct {
	Key       string
	First     any
	ThisTime  any
	FirstCall call_stack.CallStack
	ThisCall  call_stack.CallStack
	HowToFix  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Snapshot was set to multiple values!\n"+
		"  first value: %v\n"+
		"    this time: %v\n"+
		"   first call: %s\n"+
		"    this call: %s\n"+
		"%s", e.First, e.ThisTime, e.FirstCall.IdeLink(), e.ThisCall.IdeLink(), e.HowToFix)
}

// DuplicateWriteError means one key was written twice with the same value while that is disallowed.
type DuplicateWriteError struct {
	Key       string
	FirstCall call_stack.CallStack
	ThisCall  call_stack.CallStack
	HowToFix  string
}

func (e *DuplicateWriteError) Error() string {
	return "Snapshot was set to the same value multiple times.\n" + e.HowToFix
}

// tracker records the first write to every key with insert-if-absent CAS.
type tracker[K any, V any] struct {
	writes   atomic.Pointer[arraymap.Map[K, *FirstWrite[V]]]
	equal    func(a, b V) bool
	howToFix string
}

func newTracker[K any, V any](cmp func(a, b K) int, equal func(a, b V) bool, howToFix string) *tracker[K, V] {
	t := &tracker[K, V]{equal: equal, howToFix: howToFix}
	t.writes.Store(arraymap.EmptyMap[K, *FirstWrite[V]](cmp))
	return t
}

func (t *tracker[K, V]) record(key K, value V, call call_stack.CallStack, layout contracts.ILayout) error {
	thisWrite := &FirstWrite[V]{Value: value, Call: call}
	_, writes := utils.UpdateAndGet(&t.writes, func(m *arraymap.Map[K, *FirstWrite[V]]) *arraymap.Map[K, *FirstWrite[V]] {
		return m.PlusOrNoOp(key, thisWrite)
	})
	existing, _ := writes.Get(key)
	if existing == thisWrite {
		return nil
	}
	if err := layout.CheckForSmuggledError(); err != nil {
		return err
	}
	if !t.equal(existing.Value, value) {
		return &ConflictError{
			Key:       fmt.Sprint(key),
			First:     existing.Value,
			ThisTime:  value,
			FirstCall: existing.Call,
			ThisCall:  call,
			HowToFix:  t.howToFix,
		}
	}
	if !layout.AllowMultipleEquivalentWritesToOneLocation() {
		return &DuplicateWriteError{Key: fmt.Sprint(key), FirstCall: existing.Call, ThisCall: call, HowToFix: t.howToFix}
	}
	return nil
}

func (t *tracker[K, V]) all() *arraymap.Map[K, *FirstWrite[V]] { return t.writes.Load() }
