package arraymap

import (
	"iter"
	"slices"
)

// Set is an immutable sorted set, the key-only sibling of Map.
type Set[K any] struct {
	cmp  func(a, b K) int
	data []K
}

// EmptySet returns an empty set ordered by cmp.
func EmptySet[K any](cmp func(a, b K) int) *Set[K] {
	return &Set[K]{cmp: cmp}
}

// Len returns the number of elements.
func (s *Set[K]) Len() int { return len(s.data) }

// At returns the i-th element in sorted order.
func (s *Set[K]) At(i int) K { return s.data[i] }

// All iterates the elements in sorted order.
func (s *Set[K]) All() iter.Seq[K] {
	return slices.Values(s.data)
}

// Contains reports whether key is in the set.
func (s *Set[K]) Contains(key K) bool {
	_, found := slices.BinarySearchFunc(s.data, key, s.cmp)
	return found
}

// PlusOrThis adds key, or returns the receiver itself if key is already present.
func (s *Set[K]) PlusOrThis(key K) *Set[K] {
	idx, found := slices.BinarySearchFunc(s.data, key, s.cmp)
	if found {
		return s
	}
	return &Set[K]{cmp: s.cmp, data: slices.Insert(slices.Clone(s.data), idx, key)}
}
