package utils

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlightLiteral(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HighlightLiteral(&buf, `expectSelfie(5).toBe(5);`, "java", "dracula"))
	assert.Contains(t, buf.String(), "expectSelfie")
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestRenderDiff(t *testing.T) {
	var buf bytes.Buffer
	RenderDiff(&buf, "--- a\n+++ b\n@@ -1 +1 @@\n-old\n+new\n same\n")

	out := buf.String()
	assert.Contains(t, out, "\x1b[91m-old\x1b[0m\n")
	assert.Contains(t, out, "\x1b[92m+new\x1b[0m\n")
	assert.Contains(t, out, "\x1b[1m--- a\x1b[0m\n")
	assert.True(t, strings.HasSuffix(out, " same\n"))
}

func TestConfirmPrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := ConfirmPrompt("Delete?", bufio.NewReader(strings.NewReader(tt.input)), io.Discard)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "input %q", tt.input)
	}
}

func TestConfirmPromptWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader, _ := io.Pipe()

	ok, err := ConfirmPromptWithContext(ctx, "Delete?", bufio.NewReader(reader), io.Discard)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
