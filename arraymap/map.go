package arraymap

import (
	"fmt"
	"iter"
	"slices"
	"sort"
)

// Map is an immutable map backed by a sorted key array.
// Every mutator returns a new Map and leaves the receiver untouched, so a *Map can be
// published through an atomic pointer and read without locks.
type Map[K any, V any] struct {
	cmp    func(a, b K) int
	keys   []K
	values []V
}

// EmptyMap returns an empty map ordered by cmp.
func EmptyMap[K any, V any](cmp func(a, b K) int) *Map[K, V] {
	return &Map[K, V]{cmp: cmp}
}

// MapOf sorts the given entries and fails if a key is present twice.
func MapOf[K any, V any](cmp func(a, b K) int, keys []K, values []V) (*Map[K, V], error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("arraymap: %d keys but %d values", len(keys), len(values))
	}
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return cmp(keys[idx[a]], keys[idx[b]]) < 0 })
	m := &Map[K, V]{cmp: cmp, keys: make([]K, len(keys)), values: make([]V, len(values))}
	for i, from := range idx {
		m.keys[i] = keys[from]
		m.values[i] = values[from]
		if i > 0 && cmp(m.keys[i-1], m.keys[i]) == 0 {
			return nil, fmt.Errorf("arraymap: duplicate key %v", m.keys[i])
		}
	}
	return m, nil
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.keys) }

// IsEmpty reports whether the map has no entries.
func (m *Map[K, V]) IsEmpty() bool { return len(m.keys) == 0 }

// KeyAt returns the i-th key in sorted order.
func (m *Map[K, V]) KeyAt(i int) K { return m.keys[i] }

// ValueAt returns the value of the i-th key in sorted order.
func (m *Map[K, V]) ValueAt(i int) V { return m.values[i] }

// Keys returns a copy of the sorted keys.
func (m *Map[K, V]) Keys() []K { return slices.Clone(m.keys) }

// Values returns a copy of the values, in key order.
func (m *Map[K, V]) Values() []V { return slices.Clone(m.values) }

// All iterates the entries in key order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.keys {
			if !yield(m.keys[i], m.values[i]) {
				return
			}
		}
	}
}

func (m *Map[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(m.keys, key, m.cmp)
}

// Get returns the value for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if idx, found := m.search(key); found {
		return m.values[idx], true
	}
	var zero V
	return zero, false
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, found := m.search(key)
	return found
}

// Plus adds a new entry, failing if the key is already present.
func (m *Map[K, V]) Plus(key K, value V) (*Map[K, V], error) {
	idx, found := m.search(key)
	if found {
		return nil, fmt.Errorf("arraymap: key already exists: %v", key)
	}
	return m.insert(idx, key, value), nil
}

// PlusOrNoOp adds the entry, or returns the receiver itself if the key is already present.
func (m *Map[K, V]) PlusOrNoOp(key K, value V) *Map[K, V] {
	idx, found := m.search(key)
	if found {
		return m
	}
	return m.insert(idx, key, value)
}

// PlusOrNoOpOrReplace adds the entry, returns the receiver itself if an equal value is
// already present, or returns a copy with the value replaced.
func (m *Map[K, V]) PlusOrNoOpOrReplace(key K, value V, equal func(a, b V) bool) *Map[K, V] {
	idx, found := m.search(key)
	if !found {
		return m.insert(idx, key, value)
	}
	if equal(m.values[idx], value) {
		return m
	}
	values := slices.Clone(m.values)
	values[idx] = value
	return &Map[K, V]{cmp: m.cmp, keys: m.keys, values: values}
}

// MinusSortedIndices removes the entries at the given ascending indices.
func (m *Map[K, V]) MinusSortedIndices(indices []int) *Map[K, V] {
	if len(indices) == 0 {
		return m
	}
	keys := make([]K, 0, len(m.keys)-len(indices))
	values := make([]V, 0, len(m.keys)-len(indices))
	next := 0
	for i := range m.keys {
		if next < len(indices) && indices[next] == i {
			next++
			continue
		}
		keys = append(keys, m.keys[i])
		values = append(values, m.values[i])
	}
	return &Map[K, V]{cmp: m.cmp, keys: keys, values: values}
}

// MinusOrNoOp removes key, or returns the receiver itself if it is absent.
func (m *Map[K, V]) MinusOrNoOp(key K) *Map[K, V] {
	idx, found := m.search(key)
	if !found {
		return m
	}
	return m.MinusSortedIndices([]int{idx})
}

// Equal compares two maps entry by entry.
func (m *Map[K, V]) Equal(other *Map[K, V], equal func(a, b V) bool) bool {
	if m == other {
		return true
	}
	if m.Len() != other.Len() {
		return false
	}
	for i := range m.keys {
		if m.cmp(m.keys[i], other.keys[i]) != 0 || !equal(m.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

func (m *Map[K, V]) insert(idx int, key K, value V) *Map[K, V] {
	return &Map[K, V]{
		cmp:    m.cmp,
		keys:   slices.Insert(slices.Clone(m.keys), idx, key),
		values: slices.Insert(slices.Clone(m.values), idx, value),
	}
}
