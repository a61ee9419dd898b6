package snapshot

import "fmt"

// ParseError reports a malformed snapshot file, with the 1-based line where parsing stopped.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Msg == "" && e.Err != nil {
		return fmt.Sprintf("L%d:%v", e.Line, e.Err)
	}
	return fmt.Sprintf("L%d:%s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }
