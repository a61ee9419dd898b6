package literals

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

const (
	tripleQuote       = `"""`
	kotlinDollar      = `${'$'}`
	kotlinDollarQuote = `${'"'}`
)

type stringFormat struct{}

func (stringFormat) Encode(value any, language Language) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("string literal: unexpected %T", value)
	}
	if !strings.Contains(v, "\n") {
		return encodeSingle(v, language), nil
	}
	switch language {
	case Java:
		return encodeMultiJava(v), nil
	case Kotlin:
		return encodeMultiKotlin(v), nil
	default:
		// no multi-line literal support for these yet
		return encodeSingle(v, language), nil
	}
}

func (stringFormat) Parse(source string, language Language) (any, error) {
	if !strings.HasPrefix(source, tripleQuote) {
		return parseSingleLiterals(source, language)
	}
	switch language {
	case Scala:
		return nil, fmt.Errorf("%w: triple-quoted strings in Scala", ErrUnsupported)
	case Groovy:
		return nil, fmt.Errorf("%w: triple-quoted strings in Groovy", ErrUnsupported)
	case Kotlin:
		return parseMultiKotlin(source)
	default:
		return parseMultiJava(source)
	}
}

func encodeSingle(value string, language Language) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '\b':
			b.WriteString(`\b`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '$':
			switch language {
			case Kotlin:
				b.WriteString(kotlinDollar)
			case Groovy:
				b.WriteString(`\$`)
			default:
				b.WriteRune(r)
			}
		default:
			if isControlChar(r) {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func isControlChar(r rune) bool {
	return r <= 0x1f || r == 0x7f
}

func encodeMultiJava(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = escapeControlChars(escaped)
	escaped = escapeTrailingQuotes(escaped, `\"`)
	escaped = strings.ReplaceAll(escaped, tripleQuote, `\"\"\"`)
	return tripleQuote + "\n" + protectWhitespace(escaped, `\s`, `\t`) + tripleQuote
}

func encodeMultiKotlin(value string) string {
	escaped := strings.ReplaceAll(value, "$", kotlinDollar)
	escaped = strings.ReplaceAll(escaped, "\r", `${'\r'}`)
	escaped = escapeTrailingQuotes(escaped, kotlinDollarQuote)
	escaped = strings.ReplaceAll(escaped, tripleQuote, kotlinDollarQuote+kotlinDollarQuote+kotlinDollarQuote)
	return tripleQuote + protectWhitespace(escaped, `${' '}`, `${'\t'}`) + tripleQuote
}

// escapeTrailingQuotes keeps quotes at the very end from merging into the closing delimiter.
func escapeTrailingQuotes(s string, replacement string) string {
	trimmed := strings.TrimRight(s, `"`)
	return trimmed + strings.Repeat(replacement, len(s)-len(trimmed))
}

// escapeControlChars escapes everything a text block would not keep verbatim, except newlines and tabs.
func escapeControlChars(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return isControlChar(r) && r != '\n' && r != '\t' }) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\r':
			b.WriteString(`\r`)
		case isControlChar(r) && r != '\n' && r != '\t':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// protectWhitespace escapes one leading and one trailing space or tab per line,
// which editors and formatters would otherwise strip.
func protectWhitespace(s string, space string, tab string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.HasSuffix(line, " ") {
			line = line[:len(line)-1] + space
		} else if strings.HasSuffix(line, "\t") {
			line = line[:len(line)-1] + tab
		}
		if strings.HasPrefix(line, " ") {
			line = space + line[1:]
		} else if strings.HasPrefix(line, "\t") {
			line = tab + line[1:]
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// parseSingleLiterals parses `"a"` or several comma separated literals `"a", "b"`,
// which are joined by newlines.
func parseSingleLiterals(source string, language Language) (string, error) {
	var parts []string
	rest := source
	for {
		end, err := closingQuote(rest)
		if err != nil {
			return "", err
		}
		part, err := parseSingle(rest[:end+1], language)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)

		rest = strings.TrimLeftFunc(rest[end+1:], unicode.IsSpace)
		if rest == "" {
			return strings.Join(parts, "\n"), nil
		}
		if rest[0] != ',' {
			return "", fmt.Errorf("string literal: expected ',' between literals, got %q", rest)
		}
		rest = strings.TrimLeftFunc(rest[1:], unicode.IsSpace)
	}
}

// closingQuote returns the index of the quote which closes the literal starting at s[0].
func closingQuote(s string) (int, error) {
	if !strings.HasPrefix(s, `"`) {
		return 0, fmt.Errorf("string literal: expected to start with '\"', got %q", s)
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return 0, fmt.Errorf("string literal: missing closing quote in %q", s)
}

func parseSingle(sourceWithQuotes string, language Language) (string, error) {
	source := sourceWithQuotes[1 : len(sourceWithQuotes)-1]
	// Groovy escapes dollars with a backslash, which unescapeJava handles
	if language == Kotlin {
		var err error
		if source, err = inlineDollars(source); err != nil {
			return "", err
		}
	}
	return unescapeJava(source)
}

func parseMultiJava(sourceWithQuotes string) (string, error) {
	if !strings.HasPrefix(sourceWithQuotes, tripleQuote+"\n") || !strings.HasSuffix(sourceWithQuotes, tripleQuote) ||
		len(sourceWithQuotes) < 2*len(tripleQuote)+1 {
		return "", errors.New("text block must start with '\"\"\"' and a newline, and end with '\"\"\"'")
	}
	source := sourceWithQuotes[len(tripleQuote)+1 : len(sourceWithQuotes)-len(tripleQuote)]
	lines := strings.Split(source, "\n")

	commonPrefix, found := "", false
	for _, line := range lines {
		if isBlank(line) {
			continue
		}
		prefix := line[:len(line)-len(strings.TrimLeftFunc(line, isJavaWhitespace))]
		if !found || len(prefix) < len(commonPrefix) {
			commonPrefix, found = prefix, true
		}
	}

	for i, line := range lines {
		if isBlank(line) {
			lines[i] = ""
			continue
		}
		line = strings.TrimPrefix(line, commonPrefix)
		line = strings.TrimRightFunc(line, isJavaWhitespace)
		unescaped, err := unescapeJava(line)
		if err != nil {
			return "", err
		}
		lines[i] = unescaped
	}
	return strings.Join(lines, "\n"), nil
}

func parseMultiKotlin(sourceWithQuotes string) (string, error) {
	if !strings.HasSuffix(sourceWithQuotes, tripleQuote) || len(sourceWithQuotes) < 2*len(tripleQuote) {
		return "", errors.New("raw string must start and end with '\"\"\"'")
	}
	return inlineDollars(sourceWithQuotes[len(tripleQuote) : len(sourceWithQuotes)-len(tripleQuote)])
}

func isBlank(line string) bool {
	return strings.TrimFunc(line, isJavaWhitespace) == ""
}

func isJavaWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\f', '\v', '\r':
		return true
	}
	return false
}

var charLiteralRegex = regexp.MustCompile(`\$\{'(\\?.)'\}`)

// inlineDollars resolves `${'x'}` char templates into their characters.
func inlineDollars(source string) (string, error) {
	if !strings.Contains(source, "$") {
		return source, nil
	}
	var err error
	result := charLiteralRegex.ReplaceAllStringFunc(source, func(match string) string {
		charLiteral := charLiteralRegex.FindStringSubmatch(match)[1]
		if len(charLiteral) == 1 || charLiteral[0] != '\\' {
			return charLiteral
		}
		switch charLiteral[1] {
		case 't':
			return "\t"
		case 'b':
			return "\b"
		case 'n':
			return "\n"
		case 'r':
			return "\r"
		case '\'':
			return "'"
		case '\\':
			return `\`
		case '$':
			return "$"
		default:
			err = fmt.Errorf("unknown character literal %s", charLiteral)
			return match
		}
	})
	return result, err
}

func unescapeJava(source string) (string, error) {
	first := strings.IndexByte(source, '\\')
	if first == -1 {
		return source, nil
	}
	var b strings.Builder
	b.WriteString(source[:first])
	for i := first; i < len(source); i++ {
		c := source[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(source) {
			return "", errors.New("escape character '\\' can't be the last character")
		}
		switch source[i] {
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '\\':
			b.WriteByte('\\')
		case '$':
			b.WriteByte('$')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 's':
			b.WriteByte(' ')
		case 't':
			b.WriteByte('\t')
		case 'u':
			r, consumed, err := parseUnicodeEscape(source[i+1:])
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			i += consumed
		default:
			return "", fmt.Errorf("unknown escape sequence \\%c", source[i])
		}
	}
	return b.String(), nil
}

// parseUnicodeEscape reads the hex digits after `\u`, joining a following `\uXXXX`
// low surrogate into a single rune.
func parseUnicodeEscape(s string) (rune, int, error) {
	if len(s) < 4 {
		return 0, 0, fmt.Errorf("incomplete unicode escape \\u%s", s)
	}
	code, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid unicode escape \\u%s: %w", s[:4], err)
	}
	r := rune(code)
	if utf16.IsSurrogate(r) && len(s) >= 10 && s[4:6] == `\u` {
		if low, err := strconv.ParseUint(s[6:10], 16, 16); err == nil {
			if combined := utf16.DecodeRune(r, rune(low)); combined != unicode.ReplacementChar {
				return combined, 10, nil
			}
		}
	}
	return r, 4, nil
}
