package snapshot

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/meysamhadeli/selfie/arraymap"
)

// Snapshot is a subject value plus named facets, ordered by arraymap.CompareSlashFirst.
// The empty facet name is reserved for the subject.
type Snapshot struct {
	subject Value
	facets  *arraymap.Map[string, Value]
}

// Entry is one (facet name, value) pair, where "" names the subject.
type Entry struct {
	Key   string
	Value Value
}

// Of creates a snapshot without facets.
func Of(subject Value) Snapshot {
	return Snapshot{subject: subject, facets: arraymap.EmptyMap[string, Value](arraymap.CompareSlashFirst)}
}

// OfString creates a snapshot whose subject is s.
func OfString(s string) Snapshot { return Of(StringValue(s)) }

// OfBinary creates a snapshot whose subject is b.
func OfBinary(b []byte) Snapshot { return Of(BinaryValue(b)) }

// OfEntries builds a snapshot from entries. A missing subject becomes the empty string.
func OfEntries(entries []Entry) (Snapshot, error) {
	var root Value
	facets := arraymap.EmptyMap[string, Value](arraymap.CompareSlashFirst)
	for _, entry := range entries {
		if entry.Key == "" {
			if root != nil {
				return Snapshot{}, fmt.Errorf("duplicate root snapshot.\n first: %s\nsecond: %s", root, entry.Value)
			}
			root = entry.Value
			continue
		}
		next, err := facets.Plus(entry.Key, entry.Value)
		if err != nil {
			return Snapshot{}, err
		}
		facets = next
	}
	if root == nil {
		root = StringValue("")
	}
	return Snapshot{subject: root, facets: facets}, nil
}

// Subject returns the main value.
func (s Snapshot) Subject() Value { return s.subject }

// Facets returns the sorted facet map, excluding the subject.
func (s Snapshot) Facets() *arraymap.Map[string, Value] { return s.facets }

// PlusFacet adds a facet. The empty key is reserved for the subject.
func (s Snapshot) PlusFacet(key string, value Value) (Snapshot, error) {
	if key == "" {
		return Snapshot{}, errors.New("the empty string is reserved for the subject")
	}
	facets, err := s.facets.Plus(unixNewlines(key), value)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{subject: s.subject, facets: facets}, nil
}

// PlusOrReplace adds or replaces the given facet, or the subject when key is "".
func (s Snapshot) PlusOrReplace(key string, value Value) Snapshot {
	if key == "" {
		return Snapshot{subject: value, facets: s.facets}
	}
	return Snapshot{subject: s.subject, facets: s.facets.PlusOrNoOpOrReplace(unixNewlines(key), value, valuesEqual)}
}

// SubjectOrFacetMaybe returns the subject for "" or the named facet.
func (s Snapshot) SubjectOrFacetMaybe(key string) (Value, bool) {
	if key == "" {
		return s.subject, true
	}
	return s.facets.Get(key)
}

// SubjectOrFacet is SubjectOrFacetMaybe with an error listing the available facets.
func (s Snapshot) SubjectOrFacet(key string) (Value, error) {
	if value, ok := s.SubjectOrFacetMaybe(key); ok {
		return value, nil
	}
	return nil, fmt.Errorf("'%s' not found in [%s]", key, strings.Join(s.facets.Keys(), ", "))
}

// AllEntries yields the subject under "" followed by every facet.
func (s Snapshot) AllEntries() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if !yield("", s.subject) {
			return
		}
		for key, value := range s.facets.All() {
			if !yield(key, value) {
				return
			}
		}
	}
}

// Equal compares subject and facets.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.subject.Equal(other.subject) && s.facets.Equal(other.facets, valuesEqual)
}

func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(s.subject.String())
	b.WriteString(" {")
	first := true
	for key, value := range s.facets.All() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(value.String())
	}
	b.WriteString("}]")
	return b.String()
}

func snapshotsEqual(a, b Snapshot) bool {
	return a.Equal(b)
}
