package engine

import (
	"errors"
	"fmt"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
)

var (
	// ErrNoDiskStorage means a disk snapshot was used outside of a started test.
	ErrNoDiskStorage = errors.New("no disk storage is bound to this context, was the test started with ClassProgress.StartTest?")
	// ErrAlreadyFinished means FinishedAllTests was called twice.
	ErrAlreadyFinished = errors.New("FinishedAllTests() was called more than once")
	// ErrTerminated means a class was used after its last container finished.
	ErrTerminated = errors.New("cannot call methods on a terminated ClassProgress")
)

// AssertionError is a failed snapshot assertion, with values a test framework can diff.
type AssertionError struct {
	Message  string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string { return e.Message }

// NotFoundError means there is no snapshot to compare against.
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ModeViolationError means a source file asks to be written while in readonly mode.
type ModeViolationError struct {
	Comment  string
	Location call_stack.CallLocation
}

func (e *ModeViolationError) Error() string {
	return fmt.Sprintf("Selfie is in readonly mode, so `%s` is illegal at %s", e.Comment, e.Location.IdeLink())
}

// FinalizeError is a problem found while finishing the run.
type FinalizeError struct {
	Path contracts.TypedPath
	Msg  string
}

func (e *FinalizeError) Error() string { return e.Msg }
