package engine

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/selfie/call_stack"
)

// Mode decides whether snapshots are written or only compared.
type Mode int

const (
	// Interactive writes snapshots marked `_TODO` or in files with a writable comment.
	Interactive Mode = iota
	// Readonly never writes, the default on CI.
	Readonly
	// Overwrite writes every snapshot.
	Overwrite
)

var modeNames = [...]string{"interactive", "readonly", "overwrite"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q, expected one of %s", s, strings.Join(modeNames[:], ", "))
}

// CanWrite reports whether the snapshot at call may be written. In readonly mode a
// writable comment in the source is a ModeViolationError.
func (m Mode) CanWrite(isTodo bool, call call_stack.CallStack, system *System) (bool, error) {
	switch m {
	case Interactive:
		if isTodo {
			return true, nil
		}
		return system.SourceFileHasWritableComment(call)
	case Readonly:
		hasComment, err := system.SourceFileHasWritableComment(call)
		if err != nil || !hasComment {
			return false, err
		}
		path, err := system.layout.SourcePathForCall(call.Location)
		if err != nil {
			return false, err
		}
		comment, line, err := commentString(path, system.fs)
		if err != nil {
			return false, err
		}
		return false, &ModeViolationError{Comment: comment, Location: call.Location.WithLine(line)}
	default:
		return true, nil
	}
}

// MsgSnapshotNotFound is the failure message for a missing disk snapshot.
func (m Mode) MsgSnapshotNotFound() string { return m.msg("Snapshot not found") }

func (m Mode) MsgSnapshotNotFoundNoSuchFile(file fmt.Stringer) string {
	return m.msg("Snapshot not found: no such file " + file.String())
}

// MsgSnapshotMismatch is the failure message for unequal text values.
func (m Mode) MsgSnapshotMismatch(expected, actual string) string {
	return m.msg(MismatchMessage(expected, actual))
}

func (m Mode) MsgSnapshotMismatchBinary() string { return m.msg("Snapshot mismatch") }

func (m Mode) msg(headline string) string {
	switch m {
	case Interactive:
		return headline + "\n" +
			"- update this snapshot by adding `_TODO` to the function name\n" +
			"- update all snapshots in this file by adding `//selfieonce` or `//SELFIEWRITE`"
	case Readonly:
		return headline
	default:
		return headline + "\n(didn't expect this to ever happen in overwrite mode)"
	}
}
