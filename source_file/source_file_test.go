package source_file

import (
	"testing"

	"github.com/meysamhadeli/selfie/literals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func javaFile(t *testing.T, content string) *SourceFile {
	t.Helper()
	f, err := New("UnderTest.java", content, 17)
	require.NoError(t, err)
	return f
}

func kotlinFile(t *testing.T, content string) *SourceFile {
	t.Helper()
	f, err := New("UnderTest.kt", content, 17)
	require.NoError(t, err)
	return f
}

func assertArg(t *testing.T, content string, expectedArg string) {
	t.Helper()
	literal, err := javaFile(t, content).ParseToBeLike(1)
	require.NoError(t, err)
	assert.Equal(t, expectedArg, literal.Arg())
}

func assertParseError(t *testing.T, content string, expectedMsg string) {
	t.Helper()
	_, err := javaFile(t, content).ParseToBeLike(1)
	var rewriteErr *RewriteError
	require.ErrorAs(t, err, &rewriteErr)
	assert.Equal(t, expectedMsg, rewriteErr.Error())
}

func TestParseToBeLike_Primitives(t *testing.T) {
	assertArg(t, "expectSelfie(7).toBe(7)", "7")
	assertArg(t, "expectSelfie(7).toBe( 7 )", "7")
	assertArg(t, "expectSelfie(7).toBe(1_000)", "1_000")
	assertArg(t, "expectSelfie(7).toBe(7L)", "7L")
	assertArg(t, "expectSelfie(7).toBe_TODO()", "")
	assertArg(t, "expectSelfie(7).toBe_TODO( )", "")
	assertArg(t, "expectSelfie(true).toBe(false)", "false")
}

func TestParseToBeLike_Strings(t *testing.T) {
	assertArg(t, `expectSelfie("7").toBe("7")`, `"7"`)
	assertArg(t, `expectSelfie("7").toBe("a\"b")`, `"a\"b"`)
	assertArg(t, `expectSelfie("7").toBe("a\\")`, `"a\\"`)
	assertArg(t, `expectSelfie("7").toBe("a)b")`, `"a)b"`)
	assertArg(t, `expectSelfie("7").toBe("a", "b")`, `"a", "b"`)
	assertArg(t, "expectSelfie(\"7\").toBe(\"a\",\n  \"b\")", "\"a\",\n  \"b\"")
	assertArg(t, "expectSelfie(\"7\").toBe(\"\"\"\n  a\n  b\"\"\")", "\"\"\"\n  a\n  b\"\"\"")
	assertArg(t, "expectSelfie(\"7\").toBe(\"\"\"\n  a\\\"\"\"\n  \"\"\")", "\"\"\"\n  a\\\"\"\"\n  \"\"\"")
}

func TestParseToBeLike_PicksEarliestMarker(t *testing.T) {
	literal, err := javaFile(t, `expectSelfie(x).toBeBase64_TODO(); other.toBe(5)`).ParseToBeLike(1)
	require.NoError(t, err)
	assert.Equal(t, ".toBeBase64(", literal.dotFunOpenParen)
	assert.Equal(t, "", literal.Arg())
}

func TestParseToBeLike_Errors(t *testing.T) {
	assertParseError(t, "nothing here", "Expected to find inline assertion on line 1, but there was only `nothing here`")
	assertParseError(t, "expectSelfie(7).toBe(", "Appears to be an unclosed function call `.toBe()` on line 1")
	assertParseError(t, "expectSelfie(7).toBe(7", "Appears to be an unclosed numeric literal on line 1")
	assertParseError(t, `expectSelfie(7).toBe("7`, "Appears to be an unclosed string literal `\"` on line 1")
	assertParseError(t, `expectSelfie(7).toBe("""`, "Appears to be an unclosed multiline string literal `\"\"\"` on line 1")
	assertParseError(t, `expectSelfie(7).toBe("7"`, "Appears to be an unclosed function call `.toBe()` starting at line 1")
	assertParseError(t, "expectSelfie(7).toBe(\"7\"\n + x)", "Non-primitive literal in `.toBe()` starting at line 1: error for character `+` on line 2")

	_, err := javaFile(t, "one line").ParseToBeLike(3)
	var rewriteErr *RewriteError
	require.ErrorAs(t, err, &rewriteErr)
	assert.Equal(t, 3, rewriteErr.Line)
}

func TestSetLiteral_Todo(t *testing.T) {
	f := javaFile(t, "class A {\n  @Test void t() {\n    expectSelfie(5).toBe_TODO();\n  }\n}\n")
	literal, err := f.ParseToBeLike(3)
	require.NoError(t, err)
	delta, err := literal.SetLiteralAndGetNewlineDelta(literals.LiteralValue{Actual: 5, Format: literals.Int})
	require.NoError(t, err)
	assert.Equal(t, 0, delta)
	assert.Equal(t, "class A {\n  @Test void t() {\n    expectSelfie(5).toBe(5);\n  }\n}\n", f.String())
}

func TestSetLiteral_NewlineDelta(t *testing.T) {
	f := javaFile(t, "expectSelfie(s).toBe(\"old\");\nnext();\n")
	literal, err := f.ParseToBeLike(1)
	require.NoError(t, err)
	delta, err := literal.SetLiteralAndGetNewlineDelta(literals.LiteralValue{Expected: "old", Actual: "a\nb", Format: literals.String})
	require.NoError(t, err)
	assert.Equal(t, 2, delta)
	assert.Equal(t, "expectSelfie(s).toBe(\"\"\"\na\nb\"\"\");\nnext();\n", f.String())

	literal, err = f.ParseToBeLike(1)
	require.NoError(t, err)
	parsed, err := literal.ParseLiteral(literals.String)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", parsed)

	delta, err = literal.SetLiteralAndGetNewlineDelta(literals.LiteralValue{Expected: "a\nb", Actual: "c", Format: literals.String})
	require.NoError(t, err)
	assert.Equal(t, -2, delta)
	assert.Equal(t, "expectSelfie(s).toBe(\"c\");\nnext();\n", f.String())
}

func TestSetLiteral_Kotlin(t *testing.T) {
	f := kotlinFile(t, "expectSelfie(s).toBe_TODO()\n")
	literal, err := f.ParseToBeLike(1)
	require.NoError(t, err)
	delta, err := literal.SetLiteralAndGetNewlineDelta(literals.LiteralValue{Actual: "a\nb", Format: literals.String})
	require.NoError(t, err)
	assert.Equal(t, 1, delta)
	assert.Equal(t, "expectSelfie(s).toBe(\"\"\"a\nb\"\"\")\n", f.String())
}

func TestSetLiteral_PreservesWindowsNewlines(t *testing.T) {
	f := javaFile(t, "a();\r\nexpectSelfie(5).toBe(4);\r\n")
	literal, err := f.ParseToBeLike(2)
	require.NoError(t, err)
	_, err = literal.SetLiteralAndGetNewlineDelta(literals.LiteralValue{Expected: 4, Actual: 5, Format: literals.Int})
	require.NoError(t, err)
	assert.Equal(t, "a();\r\nexpectSelfie(5).toBe(5);\r\n", f.String())
}

func TestReplaceOnLine(t *testing.T) {
	f := javaFile(t, "a\nexpectSelfie(x).toMatchDisk_TODO();\nb")
	require.NoError(t, f.ReplaceOnLine(2, ".toMatchDisk_TODO(", ".toMatchDisk("))
	assert.Equal(t, "a\nexpectSelfie(x).toMatchDisk();\nb", f.String())

	err := f.ReplaceOnLine(1, ".toMatchDisk_TODO(", ".toMatchDisk(")
	var rewriteErr *RewriteError
	require.ErrorAs(t, err, &rewriteErr)
	assert.Equal(t, "Expected to find `.toMatchDisk_TODO(` on line 1, but there was only `a`", err.Error())

	assert.Error(t, f.ReplaceOnLine(2, "a\n", "b"))
}

func TestRemoveSelfieOnceComments(t *testing.T) {
	f := javaFile(t, "//selfieonce\nclass A {} // selfieonce\n// SELFIEWRITE\n")
	f.RemoveSelfieOnceComments()
	assert.Equal(t, "\nclass A {} \n// SELFIEWRITE\n", f.String())
}

func TestFindWritableComment(t *testing.T) {
	comment, line, ok := FindWritableComment("package a\n\n// selfieonce\n")
	require.True(t, ok)
	assert.Equal(t, SelfieOnceSpace, comment)
	assert.Equal(t, 3, line)
	assert.True(t, comment.IsOnce())

	comment, line, ok = FindWritableComment("//SELFIEWRITE\n")
	require.True(t, ok)
	assert.Equal(t, SelfieWrite, comment)
	assert.Equal(t, 1, line)
	assert.False(t, comment.IsOnce())

	_, _, ok = FindWritableComment("class A {}")
	assert.False(t, ok)
}

func TestNew_UnknownExtension(t *testing.T) {
	_, err := New("notes.txt", "", 17)
	assert.Error(t, err)
}
