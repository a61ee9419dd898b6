package snapshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/meysamhadeli/selfie/escaper"
)

const (
	keyFirstChar = "╔"
	keyStart     = "╔═ "
	keyEnd       = " ═╗"
	flagBase64   = " ═╗ base64"
	// escapedFirstChar replaces keyFirstChar at the start of a body line.
	escapedFirstChar = "\U00010441"
	endOfFile        = "[end of file]"
	headerPrefix     = "📷 "
)

var (
	nameEsc = escaper.SpecifiedEscape("\\\\[(])\nn\tt╔┌╗┐═─")
	bodyEsc = escaper.SelfEscape("\U00010443\U00010441")
)

// LineReader splits content into lines and remembers whether it used Windows newlines.
type LineReader struct {
	lines        []string
	next         int
	unixNewlines bool
}

// NewLineReader reads lines terminated by "\n", or by "\r\n" when the first line ends that way.
// A lone "\r" is content.
func NewLineReader(content []byte) *LineReader {
	text := string(content)
	first := strings.IndexByte(text, '\n')
	r := &LineReader{unixNewlines: first <= 0 || text[first-1] != '\r'}
	if text == "" {
		return r
	}
	r.lines = strings.Split(text, "\n")
	if r.lines[len(r.lines)-1] == "" {
		r.lines = r.lines[:len(r.lines)-1]
	}
	return r
}

// ReadLine returns the next line without its terminator.
func (r *LineReader) ReadLine() (string, bool) {
	if r.next >= len(r.lines) {
		return "", false
	}
	line := r.lines[r.next]
	if !r.unixNewlines {
		line = strings.TrimSuffix(line, "\r")
	}
	r.next++
	return line, true
}

// LineNumber is the number of lines read so far.
func (r *LineReader) LineNumber() int { return r.next }

// UnixNewlines reports whether lines end with "\n" alone.
func (r *LineReader) UnixNewlines() bool { return r.unixNewlines }

// ValueReader reads a snapshot file one value at a time.
type ValueReader struct {
	lineReader *LineReader
	line       string
	hasLine    bool
}

// NewValueReader creates a ValueReader over content.
func NewValueReader(content []byte) *ValueReader {
	return &ValueReader{lineReader: NewLineReader(content)}
}

// UnixNewlines reports whether the underlying content used "\n" line endings.
func (r *ValueReader) UnixNewlines() bool { return r.lineReader.UnixNewlines() }

func (r *ValueReader) errorf(format string, args ...any) *ParseError {
	return &ParseError{Line: r.lineReader.LineNumber(), Msg: fmt.Sprintf(format, args...)}
}

func (r *ValueReader) wrap(err error) error {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	return &ParseError{Line: r.lineReader.LineNumber(), Err: err}
}

func (r *ValueReader) nextLine() (string, bool) {
	if !r.hasLine {
		r.line, r.hasLine = r.lineReader.ReadLine()
	}
	return r.line, r.hasLine
}

func (r *ValueReader) resetLine() {
	r.hasLine = false
}

// peekRawKey returns the key of the next value while it is still escaped,
// so '[' and ']' only ever appear as the facet delimiters.
func (r *ValueReader) peekRawKey() (string, bool, error) {
	line, ok := r.nextLine()
	if !ok {
		return "", false, nil
	}
	start := strings.Index(line, keyStart)
	if start == -1 {
		return "", false, r.errorf("Expected to start with '%s'", keyStart)
	}
	rest := line[start+len(keyStart):]
	end := strings.Index(rest, keyEnd)
	if end == -1 {
		return "", false, r.errorf("Expected to contain '%s'", keyEnd)
	}
	key := rest[:end]
	if strings.HasPrefix(key, " ") {
		return "", false, r.errorf("Leading spaces are disallowed: '%s'", key)
	}
	if strings.HasSuffix(key, " ") {
		return "", false, r.errorf("Trailing spaces are disallowed: '%s'", key)
	}
	return key, true, nil
}

// PeekKey returns the unescaped key of the next value without consuming it.
func (r *ValueReader) PeekKey() (string, bool, error) {
	raw, ok, err := r.peekRawKey()
	if err != nil || !ok {
		return "", ok, err
	}
	key, err := nameEsc.Unescape(raw)
	if err != nil {
		return "", false, r.wrap(err)
	}
	return key, true, nil
}

// NextValue consumes the next header and its body.
func (r *ValueReader) NextValue() (Value, error) {
	if _, ok, err := r.peekRawKey(); err != nil {
		return nil, err
	} else if !ok {
		return nil, r.errorf("Expected a value, but reached the end of the file")
	}
	isBase64 := strings.Contains(r.line, flagBase64)
	r.resetLine()

	var buffer strings.Builder
	r.scanValue(func(line string) {
		if strings.HasPrefix(line, escapedFirstChar) {
			buffer.WriteString(keyFirstChar)
			buffer.WriteString(line[len(escapedFirstChar):])
		} else {
			buffer.WriteString(line)
		}
		buffer.WriteByte('\n')
	})
	raw := strings.TrimSuffix(buffer.String(), "\n")
	if isBase64 {
		decoded, err := decodeBase64(raw)
		if err != nil {
			return nil, r.wrap(err)
		}
		return BinaryValue(decoded), nil
	}
	body, err := bodyEsc.Unescape(raw)
	if err != nil {
		return nil, r.wrap(err)
	}
	return StringValue(body), nil
}

// SkipValue consumes the next header and its body without decoding them.
func (r *ValueReader) SkipValue() error {
	if _, _, err := r.peekRawKey(); err != nil {
		return err
	}
	r.resetLine()
	r.scanValue(func(string) {})
	return nil
}

func (r *ValueReader) scanValue(consumer func(line string)) {
	line, ok := r.nextLine()
	for ok && !strings.HasPrefix(line, keyFirstChar) {
		r.resetLine()
		consumer(line)
		line, ok = r.nextLine()
	}
}

// Reader groups the values of a ValueReader into snapshots.
type Reader struct {
	values *ValueReader
}

// NewReader wraps a ValueReader.
func NewReader(values *ValueReader) *Reader {
	return &Reader{values: values}
}

func (r *Reader) peekRawRoot() (string, bool, error) {
	raw, ok, err := r.values.peekRawKey()
	if err != nil || !ok || raw == endOfFile {
		return "", false, err
	}
	if strings.ContainsAny(raw, "[]") {
		key, _ := nameEsc.Unescape(raw)
		return "", false, r.values.errorf("Missing root snapshot, square brackets not allowed: '%s'", key)
	}
	return raw, true, nil
}

// PeekKey returns the unescaped root key of the next snapshot, or false at the end of the file.
func (r *Reader) PeekKey() (string, bool, error) {
	raw, ok, err := r.peekRawRoot()
	if err != nil || !ok {
		return "", false, err
	}
	key, err := nameEsc.Unescape(raw)
	if err != nil {
		return "", false, r.values.wrap(err)
	}
	return key, true, nil
}

// NextSnapshot consumes a root value and all of its facets.
func (r *Reader) NextSnapshot() (Snapshot, error) {
	rootRaw, ok, err := r.peekRawRoot()
	if err != nil {
		return Snapshot{}, err
	}
	if !ok {
		return Snapshot{}, r.values.errorf("Expected a snapshot, but reached the end of the file")
	}
	subject, err := r.values.NextValue()
	if err != nil {
		return Snapshot{}, err
	}
	snapshot := Of(subject)
	for {
		nextRaw, ok, err := r.values.peekRawKey()
		if err != nil {
			return Snapshot{}, err
		}
		if !ok {
			return snapshot, nil
		}
		facetIdx := strings.IndexByte(nextRaw, '[')
		if facetIdx == -1 || (facetIdx == 0 && nextRaw == endOfFile) {
			return snapshot, nil
		}
		if facetRoot := nextRaw[:facetIdx]; facetRoot != rootRaw {
			nextKey, _ := nameEsc.Unescape(nextRaw)
			facetRootKey, _ := nameEsc.Unescape(facetRoot)
			rootKey, _ := nameEsc.Unescape(rootRaw)
			return Snapshot{}, r.values.errorf("Expected '%s' to come after '%s', not '%s'", nextKey, facetRootKey, rootKey)
		}
		facetEnd := strings.IndexByte(nextRaw[facetIdx+1:], ']')
		if facetEnd == -1 {
			nextKey, _ := nameEsc.Unescape(nextRaw)
			return Snapshot{}, r.values.errorf("Missing ] in %s", nextKey)
		}
		facetName, err := nameEsc.Unescape(nextRaw[facetIdx+1 : facetIdx+1+facetEnd])
		if err != nil {
			return Snapshot{}, r.values.wrap(err)
		}
		value, err := r.values.NextValue()
		if err != nil {
			return Snapshot{}, err
		}
		if snapshot, err = snapshot.PlusFacet(facetName, value); err != nil {
			return Snapshot{}, r.values.wrap(err)
		}
	}
}

// SkipSnapshot consumes a root value and all of its facets without decoding them.
func (r *Reader) SkipSnapshot() error {
	rootRaw, ok, err := r.peekRawRoot()
	if err != nil {
		return err
	}
	if !ok {
		return r.values.errorf("Expected a snapshot, but reached the end of the file")
	}
	if err := r.values.SkipValue(); err != nil {
		return err
	}
	for {
		nextRaw, ok, err := r.values.peekRawKey()
		if err != nil {
			return err
		}
		if !ok || !strings.HasPrefix(nextRaw, rootRaw+"[") {
			return nil
		}
		if err := r.values.SkipValue(); err != nil {
			return err
		}
	}
}

func encodeBase64(b []byte) string {
	encoded := base64.StdEncoding.EncodeToString(b)
	const lineLength = 76
	if len(encoded) <= lineLength {
		return encoded
	}
	var wrapped strings.Builder
	for i := 0; i < len(encoded); i += lineLength {
		if i > 0 {
			wrapped.WriteByte('\n')
		}
		wrapped.WriteString(encoded[min(i, len(encoded)):min(i+lineLength, len(encoded))])
	}
	return wrapped.String()
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(s, "\n", ""))
}
