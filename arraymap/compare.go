package arraymap

import "strings"

// CompareSlashFirst orders strings lexically except that '/' sorts before every other character.
// This keeps "test/sub" between "test" and any "test<char>" sibling, which is the order the
// snapshot garbage collector's merge-join relies on.
func CompareSlashFirst(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := a[i], b[i]
		if ca == cb {
			continue
		}
		if ca == '/' {
			return -1
		}
		if cb == '/' {
			return 1
		}
		if ca < cb {
			return -1
		}
		return 1
	}
	return len(a) - len(b)
}

// CompareStrings is plain lexical ordering.
func CompareStrings(a, b string) int {
	return strings.Compare(a, b)
}
