package engine

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// MismatchMessage points at the first difference between two values, e.g.
// "Snapshot mismatch at L3:C7" followed by the expected (-) and actual (+) lines.
// Multi-line values also get a unified diff.
func MismatchMessage(expected, actual string) string {
	headline := firstDifference(expected, actual)
	if !strings.Contains(expected, "\n") && !strings.Contains(actual, "\n") {
		return headline
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil || diff == "" {
		return headline
	}
	return headline + "\n" + strings.TrimSuffix(diff, "\n")
}

func lineEnd(s []rune, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == '\n' {
			return i
		}
	}
	return len(s)
}

func firstDifference(expectedString, actualString string) string {
	expected, actual := []rune(expectedString), []rune(actualString)
	line, column := 1, 1
	index := 0
	for index < len(expected) && index < len(actual) {
		if expected[index] != actual[index] {
			lineStart := index - column + 1
			return fmt.Sprintf("Snapshot mismatch at L%d:C%d\n-%s\n+%s", line, column,
				string(expected[lineStart:lineEnd(expected, index)]), string(actual[lineStart:lineEnd(actual, index)]))
		}
		if expected[index] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
		index++
	}
	endExpected := lineEnd(expected, index)
	endActual := lineEnd(actual, index)
	if endExpected == endActual {
		// one value continues past a line break where the other ends
		longer, marker, verb := expected, "-", "removed"
		if len(actual) > len(expected) {
			longer, marker, verb = actual, "+", "added"
		}
		start := min(endActual+1, len(longer))
		return fmt.Sprintf("Snapshot mismatch at L%d:C1 - line(s) %s\n%s%s", line+1, verb, marker, string(longer[start:lineEnd(longer, start)]))
	}
	lineStart := index - column + 1
	return fmt.Sprintf("Snapshot mismatch at L%d:C%d\n-%s\n+%s", line, column,
		string(expected[lineStart:endExpected]), string(actual[lineStart:endActual]))
}
