package escaper

import (
	"fmt"
	"strings"
)

// Escaper maps a fixed set of code points onto an escape code point followed by a replacement.
// An Escaper holds no mutable state and can be shared between goroutines.
type Escaper struct {
	escape    rune
	escaped   []rune
	escapedBy []rune
}

// SelfEscape builds an escaper whose policy is escaped by itself.
// With the policy `'123` the escaper produces:
//
//	abc     -> abc
//	123     -> '1'2'3
//	I won't -> I won''t
func SelfEscape(policy string) *Escaper {
	codePoints := []rune(policy)
	if len(codePoints) == 0 {
		panic("escaper: empty self-escape policy")
	}
	return &Escaper{escape: codePoints[0], escaped: codePoints, escapedBy: codePoints}
}

// SpecifiedEscape builds an escaper from pairs of (escaped, escapedBy) code points.
// The first code point of the policy is the escape code point.
// With the policy `'a1b2c3d` the escaper produces:
//
//	abc     -> abc
//	123     -> 'b'c'd
//	I won't -> I won'at
func SpecifiedEscape(policy string) *Escaper {
	codePoints := []rune(policy)
	if len(codePoints) == 0 || len(codePoints)%2 != 0 {
		panic(fmt.Sprintf("escaper: specified policy needs an even number of code points, got %d", len(codePoints)))
	}
	e := &Escaper{
		escape:    codePoints[0],
		escaped:   make([]rune, len(codePoints)/2),
		escapedBy: make([]rune, len(codePoints)/2),
	}
	for i := range e.escaped {
		e.escaped[i] = codePoints[2*i]
		e.escapedBy[i] = codePoints[2*i+1]
	}
	return e
}

// Escape replaces every policy code point, returning input unchanged when nothing needs escaping.
func (e *Escaper) Escape(input string) string {
	first := strings.IndexFunc(input, func(r rune) bool { return indexOf(e.escaped, r) != -1 })
	if first == -1 {
		return input
	}
	var builder strings.Builder
	builder.Grow(len(input) + 8)
	builder.WriteString(input[:first])
	for _, r := range input[first:] {
		idx := indexOf(e.escaped, r)
		if idx == -1 {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(e.escape)
			builder.WriteRune(e.escapedBy[idx])
		}
	}
	return builder.String()
}

// Unescape is the inverse of Escape. An escape code point followed by an unknown
// code point yields that code point verbatim.
func (e *Escaper) Unescape(input string) (string, error) {
	first := strings.IndexRune(input, e.escape)
	if first == -1 {
		return input, nil
	}
	var builder strings.Builder
	builder.Grow(len(input))
	builder.WriteString(input[:first])

	runes := []rune(input[first:])
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == e.escape {
			if i+1 >= len(runes) {
				return "", fmt.Errorf("escape character '%c' can't be the last character in a string", e.escape)
			}
			i++
			r = runes[i]
			if idx := indexOf(e.escapedBy, r); idx != -1 {
				r = e.escaped[idx]
			}
		}
		builder.WriteRune(r)
	}
	return builder.String(), nil
}

func indexOf(arr []rune, target rune) int {
	for i, r := range arr {
		if r == target {
			return i
		}
	}
	return -1
}
