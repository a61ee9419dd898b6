package source_file

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meysamhadeli/selfie/literals"
)

const tripleQuote = `"""`

var toBeLikes = []string{".toBe(", ".toBe_TODO(", ".toBeBase64(", ".toBeBase64_TODO("}

// ErrRoundTrip means a literal format produced source it cannot read back; the file is left untouched.
var ErrRoundTrip = errors.New("literal does not round trip")

// RewriteError is a lexical problem found while locating a literal.
type RewriteError struct {
	Line int
	Msg  string
}

func (e *RewriteError) Error() string { return e.Msg }

func rewriteErrorf(line int, format string, args ...any) *RewriteError {
	return &RewriteError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// SourceFile is an editable test source file. Content is held with "\n" newlines
// and written back in the style it was read with.
type SourceFile struct {
	unixNewlines bool
	content      string
	language     literals.Language
}

// New wraps the content of filename; the extension selects the literal language.
func New(filename string, content string, javaVersion int) (*SourceFile, error) {
	language, err := literals.LanguageFromFilename(filename, javaVersion)
	if err != nil {
		return nil, err
	}
	return &SourceFile{
		unixNewlines: !strings.Contains(content, "\r"),
		content:      strings.ReplaceAll(content, "\r\n", "\n"),
		language:     language,
	}, nil
}

// String returns the current content with the original newline style.
func (f *SourceFile) String() string {
	if f.unixNewlines {
		return f.content
	}
	return strings.ReplaceAll(f.content, "\n", "\r\n")
}

// Language is the literal language of the file.
func (f *SourceFile) Language() literals.Language { return f.language }

// RemoveSelfieOnceComments strips every `//selfieonce` and `// selfieonce`.
// Occurrences inside string constants or non C-style comments are removed as well.
func (f *SourceFile) RemoveSelfieOnceComments() {
	f.content = strings.ReplaceAll(f.content, "//selfieonce", "")
	f.content = strings.ReplaceAll(f.content, "// selfieonce", "")
}

// ReplaceOnLine replaces the first occurrence of find on the given 1-based line.
func (f *SourceFile) ReplaceOnLine(line int, find string, replace string) error {
	if strings.Contains(find, "\n") || strings.Contains(replace, "\n") {
		return fmt.Errorf("replacements must be single line: %q -> %q", find, replace)
	}
	start, end, err := f.unixLine(line)
	if err != nil {
		return err
	}
	idx := strings.Index(f.content[start:end], find)
	if idx == -1 {
		return rewriteErrorf(line, "Expected to find `%s` on line %d, but there was only `%s`", find, line, f.content[start:end])
	}
	at := start + idx
	f.content = f.content[:at] + replace + f.content[at+len(find):]
	return nil
}

// unixLine returns the byte span of a 1-based line, excluding its newline.
func (f *SourceFile) unixLine(line int) (int, int, error) {
	if line < 1 {
		return 0, 0, rewriteErrorf(line, "Line %d is out of range", line)
	}
	start := 0
	for i := 1; i < line; i++ {
		next := strings.IndexByte(f.content[start:], '\n')
		if next == -1 {
			return 0, 0, rewriteErrorf(line, "Line %d is out of range, the file has %d lines", line, i)
		}
		start += next + 1
	}
	end := strings.IndexByte(f.content[start:], '\n')
	if end == -1 {
		return start, len(f.content), nil
	}
	return start, start + end, nil
}

func (f *SourceFile) lineAtOffset(offset int) int {
	return 1 + strings.Count(f.content[:offset], "\n")
}

// ToBeLiteral is a `.toBe(LITERAL)` style call found in a SourceFile.
type ToBeLiteral struct {
	file *SourceFile
	// dotFunOpenParen is the call prefix with any `_TODO` removed
	dotFunOpenParen string
	callStart       int
	callEnd         int
	argStart        int
	argEnd          int
}

// Arg returns the literal source text, empty for `_TODO` calls.
func (l *ToBeLiteral) Arg() string { return l.file.content[l.argStart:l.argEnd] }

// ParseLiteral parses the literal currently in the file.
func (l *ToBeLiteral) ParseLiteral(format literals.Format) (any, error) {
	return format.Parse(l.Arg(), l.file.language)
}

// SetLiteralAndGetNewlineDelta replaces the whole call with one holding the encoded
// value and returns how many lines were added (or removed, if negative).
func (l *ToBeLiteral) SetLiteralAndGetNewlineDelta(value literals.LiteralValue) (int, error) {
	encoded, err := value.Format.Encode(value.Actual, l.file.language)
	if err != nil {
		return 0, err
	}
	roundTripped, err := value.Format.Parse(encoded, l.file.language)
	if err != nil {
		return 0, fmt.Errorf("%w: %T cannot parse its own output\nORIGINAL\n%v\nENCODED\n%s\n%v", ErrRoundTrip, value.Format, value.Actual, encoded, err)
	}
	if roundTripped != value.Actual {
		return 0, fmt.Errorf("%w: %T changed the value\nORIGINAL\n%v\nROUNDTRIPPED\n%v\nENCODED\n%s", ErrRoundTrip, value.Format, value.Actual, roundTripped, encoded)
	}
	content := l.file.content
	existingNewlines := strings.Count(content[l.callStart:l.callEnd], "\n")
	l.file.content = content[:l.callStart] + l.dotFunOpenParen + encoded + ")" + content[l.callEnd:]
	return strings.Count(encoded, "\n") - existingNewlines, nil
}

// ParseToBeLike finds the first `.toBe(`, `.toBe_TODO(`, `.toBeBase64(` or `.toBeBase64_TODO(`
// on the 1-based line and scans its literal argument, which may continue onto later lines.
func (f *SourceFile) ParseToBeLike(line int) (*ToBeLiteral, error) {
	lineStart, lineEnd, err := f.unixLine(line)
	if err != nil {
		return nil, err
	}
	lineContent := f.content[lineStart:lineEnd]
	dotFunOpenParen, idxInLine := "", -1
	for _, candidate := range toBeLikes {
		if idx := strings.Index(lineContent, candidate); idx != -1 && (idxInLine == -1 || idx < idxInLine) {
			dotFunOpenParen, idxInLine = candidate, idx
		}
	}
	if idxInLine == -1 {
		return nil, rewriteErrorf(line, "Expected to find inline assertion on line %d, but there was only `%s`", line, lineContent)
	}

	content := f.content
	unclosedCall := rewriteErrorf(line, "Appears to be an unclosed function call `%s)` on line %d", dotFunOpenParen, line)
	callStart := lineStart + idxInLine
	argStart := callStart + len(dotFunOpenParen)
	for argStart < len(content) && isWhitespace(content[argStart]) {
		argStart++
	}
	if argStart == len(content) {
		return nil, unclosedCall
	}

	var argEnd int
	switch {
	case strings.HasPrefix(content[argStart:], tripleQuote):
		end := f.closingTripleQuote(argStart + len(tripleQuote))
		if end == -1 {
			return nil, rewriteErrorf(line, "Appears to be an unclosed multiline string literal `%s` on line %d", tripleQuote, line)
		}
		argEnd = end + len(tripleQuote)
	case content[argStart] == '"':
		argEnd, err = f.scanStringLiterals(argStart, line)
		if err != nil {
			return nil, err
		}
	default:
		argEnd = argStart
		for argEnd < len(content) && !isWhitespace(content[argEnd]) && content[argEnd] != ')' {
			argEnd++
		}
		if argEnd == len(content) {
			return nil, rewriteErrorf(line, "Appears to be an unclosed numeric literal on line %d", line)
		}
	}

	endParen := argEnd
	for endParen < len(content) && content[endParen] != ')' {
		if !isWhitespace(content[endParen]) {
			return nil, rewriteErrorf(line, "Non-primitive literal in `%s)` starting at line %d: error for character `%c` on line %d",
				dotFunOpenParen, line, content[endParen], f.lineAtOffset(endParen))
		}
		endParen++
	}
	if endParen == len(content) {
		return nil, rewriteErrorf(line, "Appears to be an unclosed function call `%s)` starting at line %d", dotFunOpenParen, line)
	}
	return &ToBeLiteral{
		file:            f,
		dotFunOpenParen: strings.Replace(dotFunOpenParen, "_TODO", "", 1),
		callStart:       callStart,
		callEnd:         endParen + 1,
		argStart:        argStart,
		argEnd:          argEnd,
	}, nil
}

// closingTripleQuote finds the end of a multi-line literal. Kotlin raw strings have no escapes,
// text blocks do.
func (f *SourceFile) closingTripleQuote(from int) int {
	content := f.content
	if f.language == literals.Kotlin {
		idx := strings.Index(content[from:], tripleQuote)
		if idx == -1 {
			return -1
		}
		// the closing delimiter is the last three quotes of a run
		end := from + idx
		for end+len(tripleQuote) < len(content) && content[end+len(tripleQuote)] == '"' {
			end++
		}
		return end
	}
	for i := from; i < len(content); i++ {
		switch {
		case content[i] == '\\':
			i++
		case strings.HasPrefix(content[i:], tripleQuote):
			return i
		}
	}
	return -1
}

// scanStringLiterals scans `"a"` or `"a", "b"` and returns the offset just past the last quote.
func (f *SourceFile) scanStringLiterals(start int, line int) (int, error) {
	content := f.content
	pos := start
	for {
		end := pos + 1
		for end < len(content) && content[end] != '"' {
			if content[end] == '\\' {
				end++
			}
			end++
		}
		if end >= len(content) {
			return 0, rewriteErrorf(line, "Appears to be an unclosed string literal `\"` on line %d", line)
		}
		argEnd := end + 1

		next := argEnd
		for next < len(content) && isWhitespace(content[next]) {
			next++
		}
		if next == len(content) || content[next] != ',' {
			return argEnd, nil
		}
		next++
		for next < len(content) && isWhitespace(content[next]) {
			next++
		}
		if next == len(content) || content[next] != '"' {
			return argEnd, nil
		}
		pos = next
	}
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
