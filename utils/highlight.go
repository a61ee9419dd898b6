package utils

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// HighlightLiteral writes source code colored for a terminal with the given chroma lexer and theme.
func HighlightLiteral(w io.Writer, source string, lexer string, theme string) error {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, source, lexer, "terminal256", theme); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderDiff prints a unified diff with added lines green and removed lines red.
func RenderDiff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			fmt.Fprint(w, "\x1b[1m"+strings.TrimSuffix(line, "\n")+"\x1b[0m\n")
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(w, "\x1b[92m"+strings.TrimSuffix(line, "\n")+"\x1b[0m\n")
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(w, "\x1b[91m"+strings.TrimSuffix(line, "\n")+"\x1b[0m\n")
		default:
			fmt.Fprint(w, line)
		}
	}
}
