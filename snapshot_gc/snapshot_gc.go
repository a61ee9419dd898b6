package snapshot_gc

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/utils"
)

// noSuffixes is the canonical empty set, identity marks a test which ran and touched nothing.
var noSuffixes = arraymap.EmptySet[string](arraymap.CompareSlashFirst)

// WithinTestGC records which snapshots of one test are still in use. A nil set keeps everything.
type WithinTestGC struct {
	suffixesToKeep atomic.Pointer[arraymap.Set[string]]
}

func New() *WithinTestGC {
	gc := &WithinTestGC{}
	gc.suffixesToKeep.Store(noSuffixes)
	return gc
}

// KeepSuffix keeps the snapshot `test<suffix>`, where suffix is "" or starts with '/'.
func (gc *WithinTestGC) KeepSuffix(suffix string) {
	utils.UpdateAndGet(&gc.suffixesToKeep, func(s *arraymap.Set[string]) *arraymap.Set[string] {
		if s == nil {
			return nil
		}
		return s.PlusOrThis(suffix)
	})
}

// KeepAll excludes the test from pruning.
func (gc *WithinTestGC) KeepAll() *WithinTestGC {
	gc.suffixesToKeep.Store(nil)
	return gc
}

func (gc *WithinTestGC) SucceededAndUsedNoSnapshots() bool {
	return gc.suffixesToKeep.Load() == noSuffixes
}

func (gc *WithinTestGC) Keeps(suffix string) bool {
	s := gc.suffixesToKeep.Load()
	return s == nil || s.Contains(suffix)
}

func (gc *WithinTestGC) String() string {
	s := gc.suffixesToKeep.Load()
	if s == nil {
		return "(null)"
	}
	parts := make([]string, 0, s.Len())
	for suffix := range s.All() {
		parts = append(parts, fmt.Sprintf("%q", suffix))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FindStaleSnapshotsWithin returns the ascending indices of keys which no test still uses.
//
// Keys are `test` or `test/sub` sorted with arraymap.CompareSlashFirst, the order of
// testsThatRan. A key without a test is stale, a test which ran keeps exactly its
// recorded suffixes, and tests which didn't run keep everything.
func FindStaleSnapshotsWithin(keys []string, testsThatRan *arraymap.Map[string, *WithinTestGC], testsThatDidntRun []string) []int {
	gcRoots := testsThatRan
	for _, test := range testsThatDidntRun {
		gcRoots = gcRoots.PlusOrNoOp(test, New().KeepAll())
	}

	var stale []int
	gcIdx, keyIdx := 0, 0
	for keyIdx < len(keys) && gcIdx < gcRoots.Len() {
		key := keys[keyIdx]
		test, gc := gcRoots.KeyAt(gcIdx), gcRoots.ValueAt(gcIdx)
		switch {
		case key == test:
			if !gc.Keeps("") {
				stale = append(stale, keyIdx)
			}
			keyIdx++
		case strings.HasPrefix(key, test) && key[len(test)] == '/':
			if !gc.Keeps(key[len(test):]) {
				stale = append(stale, keyIdx)
			}
			keyIdx++
		case arraymap.CompareSlashFirst(test, key) < 0:
			gcIdx++
		default:
			// no test owns this key
			stale = append(stale, keyIdx)
			keyIdx++
		}
	}
	for ; keyIdx < len(keys); keyIdx++ {
		stale = append(stale, keyIdx)
	}
	return stale
}

// IsUnusedSnapshotFileStale decides for a class which never read or wrote its snapshot file.
// The file is stale only if the class succeeded and every test ran without using snapshots.
func IsUnusedSnapshotFileStale(testsThatRan *arraymap.Map[string, *WithinTestGC], testsThatDidntRun []string, classSucceeded bool) bool {
	if !classSucceeded || len(testsThatDidntRun) > 0 {
		return false
	}
	for _, gc := range testsThatRan.All() {
		if !gc.SucceededAndUsedNoSnapshots() {
			return false
		}
	}
	return true
}
