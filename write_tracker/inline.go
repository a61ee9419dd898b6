package write_tracker

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/literals"
	"github.com/meysamhadeli/selfie/source_file"
)

const inlineHowToFix = `You can fix this by doing an ` + "`if`" + ` before the assertion to separate the cases, e.g.
  if (isWindows) {
    expectSelfie(underTest).toBe("C:\\")
  } else {
    expectSelfie(underTest).toBe("bash$")
  }`

// ErrLiteralParsingBug means a literal read from source did not match the value seen at runtime.
// Once it happens no source file is modified.
var ErrLiteralParsingBug = errors.New("selfie has a literal parsing bug, please report this error at https://github.com/diffplug/selfie")

// InlineWriteTracker tracks writes of inline literals by call site.
type InlineWriteTracker struct {
	*tracker[call_stack.CallLocation, literals.LiteralValue]
	poisoned atomic.Bool
}

func NewInlineWriteTracker() *InlineWriteTracker {
	return &InlineWriteTracker{tracker: newTracker(call_stack.CallLocation.Compare, literals.LiteralValue.Equal, inlineHowToFix)}
}

// Record registers a pending literal write. When the call already has a literal, the source is
// parsed again and must agree with the value the test passed at runtime.
func (t *InlineWriteTracker) Record(call call_stack.CallStack, literal literals.LiteralValue, layout contracts.ILayout) error {
	if err := t.record(call.Location, literal, call, layout); err != nil {
		return err
	}
	if literal.IsTodo() {
		return nil
	}
	path, err := layout.SourcePathForCall(call.Location)
	if err != nil {
		return err
	}
	content, err := layout.FS().FileRead(path)
	if err != nil {
		return err
	}
	parsed, err := parseLiteralAt(path, content, call.Location.Line, literal.Format, layout.JavaVersion())
	if err != nil {
		t.poisoned.Store(true)
		return fmt.Errorf("%w: error while parsing the literal at %s: %w", ErrLiteralParsingBug, call.Location.IdeLink(), err)
	}
	if parsed != literal.Expected {
		t.poisoned.Store(true)
		return fmt.Errorf("%w: cannot modify the literal at %s, the test passed %v but the source contains %v",
			ErrLiteralParsingBug, call.Location.IdeLink(), literal.Expected, parsed)
	}
	return nil
}

func parseLiteralAt(path contracts.TypedPath, content string, line int, format literals.Format, javaVersion int) (any, error) {
	source, err := source_file.New(path.Name(), content, javaVersion)
	if err != nil {
		return nil, err
	}
	toBe, err := source.ParseToBeLike(line)
	if err != nil {
		return nil, err
	}
	return toBe.ParseLiteral(format)
}

func (t *InlineWriteTracker) HasWrites() bool { return !t.all().IsEmpty() }

type fileLineLiteral struct {
	file    contracts.TypedPath
	line    int
	literal literals.LiteralValue
}

// PersistWrites rewrites every source file with pending literals. Writes are applied in
// file and line order, shifting later lines by the newlines each rewrite adds or removes.
// A file which fails to rewrite is left untouched, the other files are still written.
func (t *InlineWriteTracker) PersistWrites(layout contracts.ILayout) error {
	if t.poisoned.Load() {
		return ErrLiteralParsingBug
	}
	var errs []error
	var writes []fileLineLiteral
	for location, write := range t.all().All() {
		path, err := layout.SourcePathForCall(location)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		writes = append(writes, fileLineLiteral{file: path, line: location.Line, literal: write.Value})
	}
	slices.SortFunc(writes, func(a, b fileLineLiteral) int {
		return cmp.Or(a.file.Compare(b.file), cmp.Compare(a.line, b.line))
	})

	for len(writes) > 0 {
		end := 1
		for end < len(writes) && writes[end].file == writes[0].file {
			end++
		}
		if err := persistFile(layout, writes[0].file, writes[:end]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", writes[0].file, err))
		}
		writes = writes[end:]
	}
	return errors.Join(errs...)
}

// persistFile applies the sorted writes of one file and writes it only if all of them succeed.
func persistFile(layout contracts.ILayout, file contracts.TypedPath, writes []fileLineLiteral) error {
	fs := layout.FS()
	content, err := fs.FileRead(file)
	if err != nil {
		return err
	}
	source, err := source_file.New(file.Name(), content, layout.JavaVersion())
	if err != nil {
		return err
	}
	delta := 0
	for _, write := range writes {
		line := write.line + delta
		if write.literal.Format == literals.TodoStub {
			kind := write.literal.Actual.(literals.TodoKind)
			if err := source.ReplaceOnLine(line, "."+string(kind)+"_TODO(", "."+string(kind)+"("); err != nil {
				return err
			}
			continue
		}
		toBe, err := source.ParseToBeLike(line)
		if err != nil {
			return err
		}
		added, err := toBe.SetLiteralAndGetNewlineDelta(write.literal)
		if err != nil {
			return err
		}
		delta += added
	}
	return fs.FileWrite(file, source.String())
}
