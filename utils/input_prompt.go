package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/selfie/constants/lipgloss"
)

// ConfirmPrompt asks a yes/no question and reads the answer from reader. Anything but
// "y" or "yes" is a no, including an empty line or end of input.
func ConfirmPrompt(question string, reader *bufio.Reader, out io.Writer) (bool, error) {
	fmt.Fprint(out, lipgloss.BlueSky.Render(question+" (y/N): "))

	answer, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("error reading input: %w", err)
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes", nil
}

// ConfirmPromptWithContext is ConfirmPrompt which gives up when ctx is done.
func ConfirmPromptWithContext(ctx context.Context, question string, reader *bufio.Reader, out io.Writer) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	resultChan := make(chan result, 1)

	go func() {
		ok, err := ConfirmPrompt(question, reader, out)
		resultChan <- result{ok, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out) // newline for a clean exit
		return false, ctx.Err()
	case r := <-resultChan:
		return r.ok, r.err
	}
}
