package engine

import (
	"path"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/meysamhadeli/selfie/engine/contracts"
)

// testAnnotation finds JUnit style test annotations. What follows is read by scanTestMethod.
var testAnnotation = regexp.MustCompile(`@(?:Test|ParameterizedTest|RepeatedTest|TestFactory)\b`)

var (
	packageDecl = regexp.MustCompile(`(?m)^\s*package\s+([\w.]+)`)
	classDecl   = regexp.MustCompile(`(?m)^[ \t]*(?:@\w+(?:\([^)\n]*\))?\s+)*(?:(?:public|protected|private|internal|abstract|open|final|sealed|data|static|inner|enum|annotation|value)\s+)*(?:class|object|interface|enum|record)\s+(\w+)`)
)

var methodModifiers = []string{
	"public", "protected", "private", "internal", "static", "final", "open", "override", "suspend", "abstract",
	"fun", "void", "def",
}

var sourceExtensions = []string{".java", ".kt", ".groovy", ".scala"}

// SourceDiscovery answers contracts.ITestDiscovery by scanning the test sources of a layout.
// A class exists while some source file declares it. When the tests of a class can't all be
// named, it is reported with nil tests so that none of its snapshots are pruned.
type SourceDiscovery struct {
	layout *Layout

	once    sync.Once
	classes map[string][]string
	err     error
}

var _ contracts.ITestDiscovery = (*SourceDiscovery)(nil)

func NewSourceDiscovery(layout *Layout) *SourceDiscovery {
	return &SourceDiscovery{layout: layout}
}

func (d *SourceDiscovery) TestMethods(className string) ([]string, bool) {
	d.once.Do(d.scan)
	methods, ok := d.classes[className]
	return methods, ok
}

// Err is the first error hit while scanning, classes after it are unknown.
func (d *SourceDiscovery) Err() error {
	d.once.Do(d.scan)
	return d.err
}

func (d *SourceDiscovery) scan() {
	d.classes = make(map[string][]string)
	fs := d.layout.FS()
	seen := make(map[string]bool)
	for _, root := range d.layout.SourceRoots() {
		err := fs.FileWalk(root, func(file contracts.TypedPath) bool {
			ext := path.Ext(file.Name())
			if !slices.Contains(sourceExtensions, ext) || seen[file.AbsolutePath] {
				return true
			}
			seen[file.AbsolutePath] = true
			subpath, err := root.Relativize(file)
			if err != nil {
				d.err = err
				return false
			}
			content, err := fs.FileRead(file)
			if err != nil {
				d.err = err
				return false
			}
			d.addSource(strings.TrimSuffix(subpath, ext), content)
			return true
		})
		if err != nil && d.err == nil {
			d.err = err
		}
		if d.err != nil {
			return
		}
	}
}

// addSource registers the classes of one file. Its tests belong to the class named like the
// file only when that is the single class the file declares.
func (d *SourceDiscovery) addSource(subpathWithoutExt string, content string) {
	pkg, stem := "", subpathWithoutExt
	if idx := strings.LastIndexByte(subpathWithoutExt, '/'); idx != -1 {
		pkg, stem = strings.ReplaceAll(subpathWithoutExt[:idx], "/", "."), subpathWithoutExt[idx+1:]
	}
	if match := packageDecl.FindStringSubmatch(content); match != nil {
		pkg = match[1]
	}
	qualify := func(name string) string {
		if pkg == "" {
			return name
		}
		return pkg + "." + name
	}

	var declared []string
	for _, match := range classDecl.FindAllStringSubmatch(content, -1) {
		declared = append(declared, match[1])
	}
	slices.Sort(declared)
	declared = slices.Compact(declared)

	methods, complete := ParseTestMethods(content)
	if !complete || len(declared) != 1 || declared[0] != stem {
		methods = nil
	}
	if len(declared) == 0 {
		declared = []string{stem}
	}
	for _, name := range declared {
		className := qualify(name)
		existing, seen := d.classes[className]
		switch {
		case !seen:
			d.classes[className] = methods
		case existing != nil && methods != nil:
			d.classes[className] = slices.Compact(slices.Sorted(slices.Values(append(slices.Clone(existing), methods...))))
		default:
			// declared twice and one of them is unknown
			d.classes[className] = nil
		}
	}
}

// ParseTestMethods lists the annotated test methods in source, sorted and without duplicates.
// complete is false when an annotation isn't followed by a method it can name, or when
// there is no test annotation at all, as with spec style frameworks.
func ParseTestMethods(source string) (methods []string, complete bool) {
	annotations := testAnnotation.FindAllStringIndex(source, -1)
	methods = []string{}
	for _, loc := range annotations {
		name, ok := scanTestMethod(source, loc[1])
		if !ok {
			return nil, false
		}
		methods = append(methods, name)
	}
	slices.Sort(methods)
	return slices.Compact(methods), len(annotations) > 0
}

// scanTestMethod reads the method declared after a test annotation which ends at pos:
// the annotation's arguments, further annotations, modifiers, then the name and its `(`.
func scanTestMethod(source string, pos int) (string, bool) {
	s := &sourceScanner{src: source, pos: pos}
	if s.peek() == '(' && !s.skipParens() {
		return "", false
	}
	for {
		s.skipSpaceAndComments()
		switch c := s.peek(); {
		case c == '@':
			s.pos++
			s.word()
			for s.peek() == '.' {
				s.pos++
				s.word()
			}
			s.skipSpaceAndComments()
			if s.peek() == '(' && !s.skipParens() {
				return "", false
			}
			continue
		case c == '`':
			end := strings.IndexByte(source[s.pos+1:], '`')
			if end == -1 {
				return "", false
			}
			name := source[s.pos+1 : s.pos+1+end]
			s.pos += end + 2
			return name, s.opensParams()
		case c == '"' || c == '\'':
			// Groovy allows string method names
			start := s.pos
			if !s.skipString() {
				return "", false
			}
			name := source[start+1 : s.pos-1]
			return name, s.opensParams()
		default:
			word := s.word()
			if word == "" {
				return "", false
			}
			if slices.Contains(methodModifiers, word) {
				continue
			}
			if s.opensParams() {
				return word, true
			}
			// a return type such as `Stream<DynamicTest>`
			s.skipTypeSuffix()
		case c == '<':
			s.skipTypeSuffix()
		}
	}
}

// sourceScanner walks JVM source text byte by byte, knowing just enough about strings and
// comments to not be fooled by parens inside them.
type sourceScanner struct {
	src string
	pos int
}

func (s *sourceScanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *sourceScanner) word() string {
	start := s.pos
	for s.pos < len(s.src) {
		r := rune(s.src[s.pos])
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && r < 0x80 {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *sourceScanner) opensParams() bool {
	s.skipSpaceAndComments()
	return s.peek() == '('
}

func (s *sourceScanner) skipSpaceAndComments() {
	for s.pos < len(s.src) {
		switch {
		case s.src[s.pos] == ' ' || s.src[s.pos] == '\t' || s.src[s.pos] == '\n' || s.src[s.pos] == '\r':
			s.pos++
		case strings.HasPrefix(s.src[s.pos:], "//"):
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end == -1 {
				s.pos = len(s.src)
				return
			}
			s.pos += end + 1
		case strings.HasPrefix(s.src[s.pos:], "/*"):
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end == -1 {
				s.pos = len(s.src)
				return
			}
			s.pos += end + 4
		default:
			return
		}
	}
}

// skipTypeSuffix moves past generics, array brackets, qualifiers and nullability of a type.
func (s *sourceScanner) skipTypeSuffix() {
	for {
		s.skipSpaceAndComments()
		switch s.peek() {
		case '<':
			depth := 0
			for s.pos < len(s.src) {
				c := s.src[s.pos]
				s.pos++
				if c == '<' {
					depth++
				} else if c == '>' {
					if depth--; depth == 0 {
						break
					}
				}
			}
		case '[':
			end := strings.IndexByte(s.src[s.pos:], ']')
			if end == -1 {
				s.pos = len(s.src)
				return
			}
			s.pos += end + 1
		case '.':
			s.pos++
			s.word()
		case '?':
			s.pos++
		default:
			return
		}
	}
}

// skipString moves past the string or char literal at pos, triple quoted included.
func (s *sourceScanner) skipString() bool {
	quote := s.src[s.pos]
	if quote == '"' && strings.HasPrefix(s.src[s.pos:], `"""`) {
		end := strings.Index(s.src[s.pos+3:], `"""`)
		if end == -1 {
			return false
		}
		s.pos += end + 6
		return true
	}
	for s.pos++; s.pos < len(s.src); s.pos++ {
		switch s.src[s.pos] {
		case '\\':
			s.pos++
		case quote:
			s.pos++
			return true
		case '\n':
			return false
		}
	}
	return false
}

// skipParens moves past the balanced parens at pos.
func (s *sourceScanner) skipParens() bool {
	depth := 0
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; c {
		case '"', '\'':
			if !s.skipString() {
				return false
			}
			continue
		case '/':
			if strings.HasPrefix(s.src[s.pos:], "//") || strings.HasPrefix(s.src[s.pos:], "/*") {
				s.skipSpaceAndComments()
				continue
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				s.pos++
				return true
			}
		}
		s.pos++
	}
	return false
}
