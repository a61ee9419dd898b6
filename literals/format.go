package literals

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned by formats that cannot encode or parse a literal.
var ErrUnsupported = errors.New("unsupported literal operation")

// Format encodes values of one type as source literals and parses them back.
type Format interface {
	Encode(value any, language Language) (string, error)
	Parse(source string, language Language) (any, error)
}

// LiteralValue is an inline snapshot: the literal currently in source, if any,
// and the value it should become.
type LiteralValue struct {
	Expected any
	Actual   any
	Format   Format
}

// IsTodo reports whether there is no literal in source yet.
func (v LiteralValue) IsTodo() bool { return v.Expected == nil }

// Equal compares the actual values and formats of two literals.
func (v LiteralValue) Equal(other LiteralValue) bool {
	return v.Format == other.Format && v.Actual == other.Actual
}

func (v LiteralValue) String() string { return fmt.Sprint(v.Actual) }

var (
	Int     Format = intFormat{}
	Long    Format = longFormat{}
	Boolean Format = booleanFormat{}
	String  Format = stringFormat{}
	// TodoStub rewrites `.toMatchDisk_TODO(` style calls; it has no literal to encode.
	TodoStub Format = todoStubFormat{}
)

type intFormat struct{}

func (intFormat) Encode(value any, _ Language) (string, error) {
	v, ok := value.(int)
	if !ok {
		return "", fmt.Errorf("int literal: unexpected %T", value)
	}
	return encodeUnderscores(int64(v)), nil
}

func (intFormat) Parse(source string, _ Language) (any, error) {
	v, err := strconv.ParseInt(strings.ReplaceAll(source, "_", ""), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("int literal: %w", err)
	}
	return int(v), nil
}

type longFormat struct{}

func (longFormat) Encode(value any, _ Language) (string, error) {
	v, ok := value.(int64)
	if !ok {
		return "", fmt.Errorf("long literal: unexpected %T", value)
	}
	return encodeUnderscores(v) + "L", nil
}

func (longFormat) Parse(source string, _ Language) (any, error) {
	digits := strings.ReplaceAll(source, "_", "")
	digits = strings.TrimSuffix(strings.TrimSuffix(digits, "L"), "l")
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("long literal: %w", err)
	}
	return v, nil
}

type booleanFormat struct{}

func (booleanFormat) Encode(value any, _ Language) (string, error) {
	v, ok := value.(bool)
	if !ok {
		return "", fmt.Errorf("boolean literal: unexpected %T", value)
	}
	return strconv.FormatBool(v), nil
}

func (booleanFormat) Parse(source string, _ Language) (any, error) {
	switch source {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return nil, fmt.Errorf("boolean literal: expected true or false, got %q", source)
	}
}

// TodoKind names the method whose `_TODO` suffix is removed once its snapshot is written.
type TodoKind string

const (
	ToMatchDisk TodoKind = "toMatchDisk"
	ToBeFile    TodoKind = "toBeFile"
)

// CreateLiteral returns the inline write which drops the `_TODO` suffix.
func (k TodoKind) CreateLiteral() LiteralValue {
	return LiteralValue{Actual: k, Format: TodoStub}
}

type todoStubFormat struct{}

func (todoStubFormat) Encode(any, Language) (string, error) { return "", ErrUnsupported }
func (todoStubFormat) Parse(string, Language) (any, error) { return nil, ErrUnsupported }

// encodeUnderscores groups digits by three from the right, e.g. 1_000_000.
func encodeUnderscores(value int64) string {
	var b strings.Builder
	magnitude := uint64(value)
	if value < 0 {
		b.WriteByte('-')
		magnitude = uint64(-(value + 1)) + 1
	}
	digits := strconv.FormatUint(magnitude, 10)
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('_')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
