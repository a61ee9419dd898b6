package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meysamhadeli/selfie/testutil"
)

func TestParseMode(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  Mode
	}{
		{"interactive", Interactive},
		{"READONLY", Readonly},
		{"Overwrite", Overwrite},
	} {
		mode, err := ParseMode(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, mode)
		assert.Equal(t, strings.ToLower(tc.input), mode.String())
	}
	_, err := ParseMode("yolo")
	assert.EqualError(t, err, `unknown mode "yolo", expected one of interactive, readonly, overwrite`)
}

func TestMode_Messages(t *testing.T) {
	assert.Equal(t, "Snapshot not found", Readonly.MsgSnapshotNotFound())
	assert.Equal(t, "Snapshot not found\n"+
		"- update this snapshot by adding `_TODO` to the function name\n"+
		"- update all snapshots in this file by adding `//selfieonce` or `//SELFIEWRITE`", Interactive.MsgSnapshotNotFound())
	assert.Equal(t, "Snapshot mismatch\n(didn't expect this to ever happen in overwrite mode)", Overwrite.MsgSnapshotMismatchBinary())
}

func TestMode_CanWrite(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	files.Set("/src/com/acme/OnceTest.java", "// selfieonce\nclass OnceTest {}\n")
	plain := callAtLine(1)
	once := callAtLine(1)
	once.Location.FileName = "OnceTest.java"

	for _, tc := range []struct {
		mode   Mode
		isTodo bool
		once   bool
		want   bool
	}{
		{Interactive, true, false, true},
		{Interactive, false, false, false},
		{Interactive, false, true, true},
		{Readonly, true, false, false},
		{Readonly, false, false, false},
		{Overwrite, false, false, true},
	} {
		system := newTestSystem(tc.mode, files, nil)
		call := plain
		if tc.once {
			call = once
		}
		got, err := tc.mode.CanWrite(tc.isTodo, call, system)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s todo=%v once=%v", tc.mode, tc.isTodo, tc.once)
	}

	_, err := Readonly.CanWrite(false, once, newTestSystem(Readonly, files, nil))
	var violation *ModeViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "//selfieonce", violation.Comment)
}
