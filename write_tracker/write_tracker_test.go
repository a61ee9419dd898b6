package write_tracker

import (
	"sync"
	"testing"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/literals"
	"github.com/meysamhadeli/selfie/snapshot"
	"github.com/meysamhadeli/selfie/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callAt(fileName string, line int) call_stack.CallStack {
	return call_stack.Of(call_stack.CallLocation{TypeName: "com.acme.UnderTest", Method: "test", FileName: fileName, Line: line})
}

func TestDiskWriteTracker_Conflict(t *testing.T) {
	layout := testutil.NewLayout(testutil.NewMemFS())
	tracker := NewDiskWriteTracker()

	require.NoError(t, tracker.Record("greet", snapshot.OfString("hello"), callAt("UnderTest.java", 5), layout))
	require.NoError(t, tracker.Record("greet", snapshot.OfString("hello"), callAt("UnderTest.java", 6), layout))

	err := tracker.Record("greet", snapshot.OfString("goodbye"), callAt("UnderTest.java", 7), layout)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "greet", conflict.Key)
	assert.Contains(t, err.Error(), "Snapshot was set to multiple values!")
	assert.Contains(t, err.Error(), "first call: com.acme.UnderTest.test(UnderTest.java:5)")
	assert.Contains(t, err.Error(), "this call: com.acme.UnderTest.test(UnderTest.java:7)")
	assert.Contains(t, err.Error(), "`.toMatchDisk(String sub)`")

	require.NoError(t, tracker.Record("greet/loud", snapshot.OfString("HELLO"), callAt("UnderTest.java", 8), layout))
}

func TestDiskWriteTracker_StrictDuplicate(t *testing.T) {
	layout := testutil.NewLayout(testutil.NewMemFS())
	layout.AllowMultiple = false
	tracker := NewDiskWriteTracker()

	require.NoError(t, tracker.Record("greet", snapshot.OfString("hello"), callAt("UnderTest.java", 5), layout))
	err := tracker.Record("greet", snapshot.OfString("hello"), callAt("UnderTest.java", 5), layout)
	var duplicate *DuplicateWriteError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "Snapshot was set to the same value multiple times.\n"+diskHowToFix, err.Error())
}

func TestDiskWriteTracker_SmuggledErrorWins(t *testing.T) {
	layout := testutil.NewLayout(testutil.NewMemFS())
	tracker := NewDiskWriteTracker()
	require.NoError(t, tracker.Record("greet", snapshot.OfString("a"), callAt("UnderTest.java", 5), layout))

	layout.Smuggled = assert.AnError
	err := tracker.Record("greet", snapshot.OfString("b"), callAt("UnderTest.java", 5), layout)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDiskWriteTracker_ConcurrentFirstWrite(t *testing.T) {
	layout := testutil.NewLayout(testutil.NewMemFS())
	tracker := NewDiskWriteTracker()

	var wg sync.WaitGroup
	errs := make([]error, 32)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tracker.Record("shared", snapshot.OfString("same"), callAt("UnderTest.java", i), layout)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, tracker.all().Len())
}

func TestToBeFileWriteTracker(t *testing.T) {
	files := testutil.NewMemFS()
	layout := testutil.NewLayout(files)
	tracker := NewToBeFileWriteTracker()
	path, err := layout.Root.ResolveFile("img/logo.png")
	require.NoError(t, err)

	require.NoError(t, tracker.WriteToDisk(path, []byte{1, 2, 3}, callAt("UnderTest.java", 3), layout))
	content, ok := files.Get("/src/img/logo.png")
	require.True(t, ok)
	assert.Equal(t, "\x01\x02\x03", content)

	require.NoError(t, tracker.WriteToDisk(path, []byte{1, 2, 3}, callAt("UnderTest.java", 4), layout))

	err = tracker.WriteToDisk(path, []byte{9}, callAt("UnderTest.java", 5), layout)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), "3 bytes (xxh3 ")
	assert.Contains(t, err.Error(), "`.toBeFile(String filename)`")
	content, _ = files.Get("/src/img/logo.png")
	assert.Equal(t, "\x01\x02\x03", content)
}

const underTest = `package com.acme;

class UnderTest {
  @Test void test() {
    expectSelfie("a\nb").toBe_TODO();
    expectSelfie(5).toBe_TODO();
    expectSelfie(x).toMatchDisk_TODO();
    expectSelfie(true).toBe(false);
  }
}
`

func TestInlineWriteTracker_PersistWrites(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set("/src/com/acme/UnderTest.java", underTest)
	layout := testutil.NewLayout(files)
	tracker := NewInlineWriteTracker()
	assert.False(t, tracker.HasWrites())

	require.NoError(t, tracker.Record(callAt("UnderTest.java", 6), literals.LiteralValue{Actual: 5, Format: literals.Int}, layout))
	require.NoError(t, tracker.Record(callAt("UnderTest.java", 5), literals.LiteralValue{Actual: "a\nb", Format: literals.String}, layout))
	require.NoError(t, tracker.Record(callAt("UnderTest.java", 7), literals.ToMatchDisk.CreateLiteral(), layout))
	require.NoError(t, tracker.Record(callAt("UnderTest.java", 8), literals.LiteralValue{Expected: false, Actual: true, Format: literals.Boolean}, layout))
	assert.True(t, tracker.HasWrites())

	require.NoError(t, tracker.PersistWrites(layout))
	content, _ := files.Get("/src/com/acme/UnderTest.java")
	assert.Equal(t, `package com.acme;

class UnderTest {
  @Test void test() {
    expectSelfie("a\nb").toBe("""
a
b""");
    expectSelfie(5).toBe(5);
    expectSelfie(x).toMatchDisk();
    expectSelfie(true).toBe(true);
  }
}
`, content)
}

func TestInlineWriteTracker_ParsingBugPoisons(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set("/src/com/acme/UnderTest.java", underTest)
	layout := testutil.NewLayout(files)
	tracker := NewInlineWriteTracker()

	// the runtime says the literal is `true`, but the source holds `false`
	err := tracker.Record(callAt("UnderTest.java", 8), literals.LiteralValue{Expected: true, Actual: false, Format: literals.Boolean}, layout)
	require.ErrorIs(t, err, ErrLiteralParsingBug)
	assert.ErrorIs(t, tracker.PersistWrites(layout), ErrLiteralParsingBug)

	content, _ := files.Get("/src/com/acme/UnderTest.java")
	assert.Equal(t, underTest, content)
}

func TestInlineWriteTracker_UnparseableSourcePoisons(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set("/src/com/acme/UnderTest.java", underTest)
	layout := testutil.NewLayout(files)
	tracker := NewInlineWriteTracker()

	err := tracker.Record(callAt("UnderTest.java", 1), literals.LiteralValue{Expected: 1, Actual: 2, Format: literals.Int}, layout)
	require.ErrorIs(t, err, ErrLiteralParsingBug)
	assert.Contains(t, err.Error(), "Expected to find inline assertion on line 1")
}

func TestInlineWriteTracker_Conflict(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set("/src/com/acme/UnderTest.java", underTest)
	layout := testutil.NewLayout(files)
	tracker := NewInlineWriteTracker()

	require.NoError(t, tracker.Record(callAt("UnderTest.java", 6), literals.LiteralValue{Actual: 5, Format: literals.Int}, layout))
	err := tracker.Record(callAt("UnderTest.java", 6), literals.LiteralValue{Actual: 6, Format: literals.Int}, layout)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), "if (isWindows)")
}

func TestInlineWriteTracker_MissingSource(t *testing.T) {
	layout := testutil.NewLayout(testutil.NewMemFS())
	tracker := NewInlineWriteTracker()
	require.NoError(t, tracker.Record(callAt("Gone.java", 6), literals.LiteralValue{Actual: 5, Format: literals.Int}, layout))
	assert.Error(t, tracker.PersistWrites(layout))
}

func TestInlineWriteTracker_FailingFileDoesNotStopOthers(t *testing.T) {
	files := testutil.NewMemFS()
	broken := "class ATest {\n  @Test void test() {\n    expectSelfie(6).toBe_TODO(5 + 1);\n    expectSelfie(1).toBe_TODO();\n  }\n}\n"
	files.Set("/src/com/acme/ATest.java", broken)
	files.Set("/src/com/acme/BTest.java", "class BTest {\n  @Test void test() {\n    expectSelfie(7).toBe_TODO();\n  }\n}\n")
	layout := testutil.NewLayout(files)
	tracker := NewInlineWriteTracker()

	require.NoError(t, tracker.Record(callAt("ATest.java", 3), literals.LiteralValue{Actual: 6, Format: literals.Int}, layout))
	require.NoError(t, tracker.Record(callAt("ATest.java", 4), literals.LiteralValue{Actual: 1, Format: literals.Int}, layout))
	require.NoError(t, tracker.Record(callAt("BTest.java", 3), literals.LiteralValue{Actual: 7, Format: literals.Int}, layout))

	err := tracker.PersistWrites(layout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/src/com/acme/ATest.java")
	assert.Contains(t, err.Error(), "Non-primitive literal")

	content, _ := files.Get("/src/com/acme/ATest.java")
	assert.Equal(t, broken, content, "a file with a failed rewrite is not written at all")
	content, _ = files.Get("/src/com/acme/BTest.java")
	assert.Equal(t, "class BTest {\n  @Test void test() {\n    expectSelfie(7).toBe(7);\n  }\n}\n", content)
}

var _ contracts.ILayout = (*testutil.Layout)(nil)
