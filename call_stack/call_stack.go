package call_stack

import (
	"cmp"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// UnknownMethod is used when only the file of a call matters.
	UnknownMethod = "<unknown>"
	modulePrefix  = "github.com/meysamhadeli/selfie/"
)

// CallLocation is the line at which user code called into the snapshot engine.
type CallLocation struct {
	TypeName string
	Method   string
	FileName string
	Line     int
}

// WithLine returns the same location at another line.
func (c CallLocation) WithLine(line int) CallLocation {
	return CallLocation{TypeName: c.TypeName, Method: UnknownMethod, FileName: c.FileName, Line: line}
}

// SamePathAs reports whether both locations are in the same source file. Lines are ignored.
// False negatives are fine, false positives are not.
func (c CallLocation) SamePathAs(other CallLocation) bool {
	return c.TypeName == other.TypeName && c.FileName == other.FileName
}

// Compare orders by type, method, file, then line.
func (c CallLocation) Compare(other CallLocation) int {
	return cmp.Or(
		strings.Compare(c.TypeName, other.TypeName),
		strings.Compare(c.Method, other.Method),
		strings.Compare(c.FileName, other.FileName),
		cmp.Compare(c.Line, other.Line),
	)
}

// IdeLink renders the location the way IDE consoles turn into hyperlinks.
func (c CallLocation) IdeLink() string {
	fileName := c.FileName
	if fileName == "" {
		fileName = c.simpleTypeName() + ".class"
	}
	return fmt.Sprintf("%s.%s(%s:%d)", c.TypeName, c.Method, fileName, c.Line)
}

func (c CallLocation) String() string { return c.IdeLink() }

// SourceFilenameWithoutExtension guesses the source file name from the type, e.g.
// "com.acme.FooTest$Inner" becomes "FooTest".
func (c CallLocation) SourceFilenameWithoutExtension() string {
	if c.FileName != "" {
		return strings.TrimSuffix(c.FileName, filepath.Ext(c.FileName))
	}
	name := c.simpleTypeName()
	if idx := strings.IndexByte(name, '$'); idx != -1 {
		name = name[:idx]
	}
	return name
}

func (c CallLocation) simpleTypeName() string {
	return c.TypeName[strings.LastIndexByte(c.TypeName, '.')+1:]
}

// CallStack is a call location and the frames above it.
type CallStack struct {
	Location    CallLocation
	RestOfStack []CallLocation
}

// Of builds a single frame stack.
func Of(location CallLocation) CallStack {
	return CallStack{Location: location}
}

// IdeLink renders every frame, one per line.
func (s CallStack) IdeLink() string {
	links := make([]string, 0, 1+len(s.RestOfStack))
	links = append(links, s.Location.IdeLink())
	for _, frame := range s.RestOfStack {
		links = append(links, frame.IdeLink())
	}
	return strings.Join(links, "\n")
}

// Capture records the stack of the calling goroutine, dropping runtime frames and
// frames inside this module's non-test sources.
func Capture() CallStack {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var locations []CallLocation
	for {
		frame, more := frames.Next()
		if !isInternal(frame) {
			typeName, method := splitFunction(frame.Function)
			locations = append(locations, CallLocation{
				TypeName: typeName,
				Method:   method,
				FileName: filepath.Base(frame.File),
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	if len(locations) == 0 {
		return CallStack{Location: CallLocation{TypeName: "unknown", Method: UnknownMethod, Line: -1}}
	}
	return CallStack{Location: locations[0], RestOfStack: locations[1:]}
}

// CaptureCaller records only the file of the first caller outside this module.
func CaptureCaller() CallStack {
	location := Capture().Location
	return Of(CallLocation{TypeName: location.TypeName, Method: UnknownMethod, FileName: location.FileName, Line: -1})
}

func isInternal(frame runtime.Frame) bool {
	if strings.HasPrefix(frame.Function, "runtime.") || strings.HasPrefix(frame.Function, "testing.") {
		return true
	}
	return strings.HasPrefix(frame.Function, modulePrefix) && !strings.HasSuffix(frame.File, "_test.go")
}

// splitFunction turns "example.com/pkg.(*Type).Method" into ("example.com/pkg.Type", "Method").
func splitFunction(function string) (typeName, method string) {
	lastSlash := strings.LastIndexByte(function, '/')
	dot := strings.IndexByte(function[lastSlash+1:], '.')
	if dot == -1 {
		return function, UnknownMethod
	}
	pkgEnd := lastSlash + 1 + dot
	pkg, rest := function[:pkgEnd], function[pkgEnd+1:]
	idx := strings.LastIndexByte(rest, '.')
	if idx == -1 {
		return pkg, rest
	}
	receiver := strings.NewReplacer("(", "", ")", "", "*", "").Replace(rest[:idx])
	return pkg + "." + receiver, rest[idx+1:]
}
