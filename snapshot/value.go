package snapshot

import (
	"bytes"
	"errors"
	"strings"
)

var (
	// ErrBinaryValue is returned when a binary value is read as a string.
	ErrBinaryValue = errors.New("this is a binary value")
	// ErrStringValue is returned when a string value is read as binary.
	ErrStringValue = errors.New("this is a string value")
)

// Value is either a string or a binary blob. Values are immutable.
type Value interface {
	IsBinary() bool
	ValueBinary() ([]byte, error)
	ValueString() (string, error)
	Equal(other Value) bool
	String() string
	isValue()
}

type stringValue string

type binaryValue []byte

// StringValue wraps s, converting any CRLF into LF.
func StringValue(s string) Value {
	return stringValue(unixNewlines(s))
}

// BinaryValue wraps b. The slice is copied.
func BinaryValue(b []byte) Value {
	return binaryValue(bytes.Clone(b))
}

func (v stringValue) IsBinary() bool { return false }
func (v stringValue) ValueBinary() ([]byte, error) { return nil, ErrStringValue }
func (v stringValue) ValueString() (string, error) { return string(v), nil }
func (v stringValue) String() string { return string(v) }
func (v stringValue) isValue() {}
func (v binaryValue) IsBinary() bool { return true }
func (v binaryValue) ValueBinary() ([]byte, error) { return bytes.Clone(v), nil }
func (v binaryValue) ValueString() (string, error) { return "", ErrBinaryValue }
func (v binaryValue) String() string { return encodeBase64(v) }
func (v binaryValue) isValue() {}

func (v stringValue) Equal(other Value) bool {
	o, ok := other.(stringValue)
	return ok && o == v
}

func (v binaryValue) Equal(other Value) bool {
	o, ok := other.(binaryValue)
	return ok && bytes.Equal(o, v)
}

func valuesEqual(a, b Value) bool {
	return a.Equal(b)
}

func unixNewlines(s string) string {
	if !strings.Contains(s, "\r\n") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}
