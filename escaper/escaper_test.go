package escaper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, e *Escaper, plain, escaped string) {
	t.Helper()
	assert.Equal(t, escaped, e.Escape(plain))
	unescaped, err := e.Unescape(escaped)
	require.NoError(t, err)
	assert.Equal(t, plain, unescaped)
}

func TestSelfEscape(t *testing.T) {
	e := SelfEscape("`123")
	roundTrip(t, e, "", "")
	roundTrip(t, e, "1", "`1")
	roundTrip(t, e, "`", "``")
	roundTrip(t, e, "abc123`def", "abc`1`2`3``def")
	roundTrip(t, e, "I won't", "I won't")
}

func TestSpecifiedEscape(t *testing.T) {
	e := SpecifiedEscape("`a1b2c3d")
	roundTrip(t, e, "", "")
	roundTrip(t, e, "1", "`b")
	roundTrip(t, e, "`", "`a")
	roundTrip(t, e, "abc123`def", "abc`b`c`d`adef")
}

func TestEscapeReturnsSameStringWhenNothingToEscape(t *testing.T) {
	e := SelfEscape("`123")
	input := "nothing to see here"
	assert.Equal(t, input, e.Escape(input))

	unescaped, err := e.Unescape(input)
	require.NoError(t, err)
	assert.Equal(t, input, unescaped)
}

func TestUnescapeTrailingEscapeIsAnError(t *testing.T) {
	e := SelfEscape("`123")
	_, err := e.Unescape("abc`")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't be the last character")
}

func TestUnescapeUnknownEscapePassesThrough(t *testing.T) {
	e := SpecifiedEscape("\\\\[(])")
	unescaped, err := e.Unescape("a\\zb")
	require.NoError(t, err)
	assert.Equal(t, "azb", unescaped)
}

func TestAstralCodePoints(t *testing.T) {
	e := SelfEscape("\U00010443\U00010441")
	roundTrip(t, e, "x\U00010441y", "x\U00010443\U00010441y")
	roundTrip(t, e, "\U00010443", "\U00010443\U00010443")
}

func TestNamePolicy(t *testing.T) {
	e := SpecifiedEscape("\\\\[(])\nn\tt╔┌╗┐═─")
	roundTrip(t, e, "a[b]\n\t", `a\(b\)\n\t`)
	roundTrip(t, e, "╔═╗", `\┌\─\┐`)
	roundTrip(t, e, `c:\dir`, `c:\\dir`)
}
