package source_file

import "strings"

// WritableComment is a comment which lets a test file be rewritten in interactive mode.
type WritableComment string

const (
	SelfieOnce       WritableComment = "//selfieonce"
	SelfieOnceSpace  WritableComment = "// selfieonce"
	SelfieWrite      WritableComment = "//SELFIEWRITE"
	SelfieWriteSpace WritableComment = "// SELFIEWRITE"
)

var writableComments = []WritableComment{SelfieOnce, SelfieOnceSpace, SelfieWrite, SelfieWriteSpace}

// IsOnce reports whether the comment is removed once the run finishes.
func (c WritableComment) IsOnce() bool {
	return c == SelfieOnce || c == SelfieOnceSpace
}

// FindWritableComment returns the first writable comment in content and its 1-based line.
// Like RemoveSelfieOnceComments, it does not tell comments apart from string constants.
func FindWritableComment(content string) (WritableComment, int, bool) {
	for _, comment := range writableComments {
		if idx := strings.Index(content, string(comment)); idx != -1 {
			return comment, 1 + strings.Count(content[:idx], "\n"), true
		}
	}
	return "", 0, false
}
