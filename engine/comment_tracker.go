package engine

import (
	"sync/atomic"

	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/source_file"
	"github.com/meysamhadeli/selfie/utils"
)

type writableComment int

const (
	noComment writableComment = iota
	onceComment
	foreverComment
)

// CommentTracker caches, per source file, whether it carries `//selfieonce` or `//SELFIEWRITE`.
type CommentTracker struct {
	cache atomic.Pointer[arraymap.Map[contracts.TypedPath, writableComment]]
}

func NewCommentTracker() *CommentTracker {
	t := &CommentTracker{}
	t.cache.Store(arraymap.EmptyMap[contracts.TypedPath, writableComment](contracts.TypedPath.Compare))
	return t
}

// PathsWithOnce lists the files seen with a `//selfieonce` comment.
func (t *CommentTracker) PathsWithOnce() []contracts.TypedPath {
	var paths []contracts.TypedPath
	for path, comment := range t.cache.Load().All() {
		if comment == onceComment {
			paths = append(paths, path)
		}
	}
	return paths
}

func (t *CommentTracker) HasWritableComment(call call_stack.CallStack, layout contracts.ILayout) (bool, error) {
	path, err := layout.SourcePathForCall(call.Location)
	if err != nil {
		return false, err
	}
	if comment, ok := t.cache.Load().Get(path); ok {
		return comment != noComment, nil
	}
	comment, _, err := commentAndLine(path, layout.FS())
	if err != nil {
		return false, err
	}
	// may race with another reader of the same file, which computes the same answer
	utils.UpdateAndGet(&t.cache, func(m *arraymap.Map[contracts.TypedPath, writableComment]) *arraymap.Map[contracts.TypedPath, writableComment] {
		return m.PlusOrNoOp(path, comment)
	})
	return comment != noComment, nil
}

func commentAndLine(path contracts.TypedPath, fs contracts.IFileSystem) (writableComment, int, error) {
	content, err := fs.FileRead(path)
	if err != nil {
		return noComment, -1, err
	}
	comment, line, ok := source_file.FindWritableComment(content)
	switch {
	case !ok:
		return noComment, -1, nil
	case comment.IsOnce():
		return onceComment, line, nil
	default:
		return foreverComment, line, nil
	}
}

// commentString names the comment found in path the way users write it.
func commentString(path contracts.TypedPath, fs contracts.IFileSystem) (string, int, error) {
	comment, line, err := commentAndLine(path, fs)
	if err != nil {
		return "", -1, err
	}
	switch comment {
	case onceComment:
		return string(source_file.SelfieOnce), line, nil
	case foreverComment:
		return string(source_file.SelfieWrite), line, nil
	default:
		return "", -1, nil
	}
}
