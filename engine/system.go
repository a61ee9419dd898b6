package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/literals"
	"github.com/meysamhadeli/selfie/source_file"
	"github.com/meysamhadeli/selfie/utils"
	"github.com/meysamhadeli/selfie/write_tracker"
)

// Options configure NewSystem.
type Options struct {
	Layout contracts.ILayout
	Mode   Mode
	// Discovery lists the tests of each class. Without it nothing is ever pruned.
	Discovery contracts.ITestDiscovery
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// System is the state of one test run. Create it once per process and call FinishedAllTests at the end.
type System struct {
	layout    contracts.ILayout
	fs        contracts.IFileSystem
	mode      Mode
	discovery contracts.ITestDiscovery
	logger    *slog.Logger

	comments     *CommentTracker
	inlineWrites *write_tracker.InlineWriteTracker
	toBeFiles    *write_tracker.ToBeFileWriteTracker

	progressPerClass atomic.Pointer[arraymap.Map[string, *ClassProgress]]
	// files written during the run, nil once the run is finished
	checkForInvalidStale atomic.Pointer[arraymap.Set[contracts.TypedPath]]
}

func NewSystem(options Options) *System {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &System{
		layout:       options.Layout,
		fs:           options.Layout.FS(),
		mode:         options.Mode,
		discovery:    options.Discovery,
		logger:       logger,
		comments:     NewCommentTracker(),
		inlineWrites: write_tracker.NewInlineWriteTracker(),
		toBeFiles:    write_tracker.NewToBeFileWriteTracker(),
	}
	s.progressPerClass.Store(arraymap.EmptyMap[string, *ClassProgress](strings.Compare))
	s.checkForInvalidStale.Store(arraymap.EmptySet[contracts.TypedPath](contracts.TypedPath.Compare))
	return s
}

func (s *System) Mode() Mode { return s.mode }

func (s *System) Layout() contracts.ILayout { return s.layout }

// ForClass returns the progress of className, creating it on first use.
func (s *System) ForClass(className string) *ClassProgress {
	if progress, ok := s.progressPerClass.Load().Get(className); ok {
		return progress
	}
	created := newClassProgress(s, className)
	_, next := utils.UpdateAndGet(&s.progressPerClass, func(m *arraymap.Map[string, *ClassProgress]) *arraymap.Map[string, *ClassProgress] {
		return m.PlusOrNoOp(className, created)
	})
	progress, _ := next.Get(className)
	return progress
}

// SourceFileHasWritableComment reports whether the file of call has `//selfieonce` or `//SELFIEWRITE`.
func (s *System) SourceFileHasWritableComment(call call_stack.CallStack) (bool, error) {
	return s.comments.HasWritableComment(call, s.layout)
}

// WriteInline queues a source literal rewrite, applied by FinishedAllTests.
func (s *System) WriteInline(literal literals.LiteralValue, call call_stack.CallStack) error {
	if err := s.assertNotFinished(); err != nil {
		return err
	}
	return s.inlineWrites.Record(call, literal, s.layout)
}

// WriteToBeFile writes content to path right away.
func (s *System) WriteToBeFile(path contracts.TypedPath, content []byte, call call_stack.CallStack) error {
	if err := s.assertNotFinished(); err != nil {
		return err
	}
	if err := s.toBeFiles.WriteToDisk(path, content, call, s.layout); err != nil {
		return err
	}
	s.logger.Debug("wrote file snapshot", "path", path.String(), "bytes", len(content))
	return nil
}

func (s *System) assertNotFinished() error {
	if s.checkForInvalidStale.Load() == nil {
		return ErrAlreadyFinished
	}
	return nil
}

func (s *System) markPathAsWritten(path contracts.TypedPath) error {
	finished := false
	utils.UpdateAndGet(&s.checkForInvalidStale, func(written *arraymap.Set[contracts.TypedPath]) *arraymap.Set[contracts.TypedPath] {
		if written == nil {
			finished = true
			return nil
		}
		finished = false
		return written.PlusOrThis(path)
	})
	if finished {
		return &FinalizeError{Path: path, Msg: "Snapshot file is being written after all tests were finished."}
	}
	return nil
}

// FinishedAllTests writes pending inline literals, removes `//selfieonce` comments, and
// deletes snapshot files whose class no longer exists.
func (s *System) FinishedAllTests() error {
	written := s.checkForInvalidStale.Swap(nil)
	if written == nil {
		return ErrAlreadyFinished
	}
	if s.mode != Readonly {
		for _, path := range s.comments.PathsWithOnce() {
			if err := s.removeSelfieOnce(path); err != nil {
				return err
			}
		}
		if s.inlineWrites.HasWrites() {
			if err := s.inlineWrites.PersistWrites(s.layout); err != nil {
				return fmt.Errorf("failed to write inline snapshots: %w", err)
			}
			s.logger.Info("wrote inline snapshots")
		}
	}
	if s.discovery == nil {
		return nil
	}
	stale, err := s.staleSnapshotFiles()
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range stale {
		if written.Contains(path) {
			errs = append(errs, &FinalizeError{Path: path, Msg: fmt.Sprintf(
				"Selfie wrote a snapshot and then marked it stale for deletion in the same run: %s\n"+
					"Selfie will delete this snapshot on the next run, which is bad! Why is Selfie marking this snapshot as stale?", path)})
			continue
		}
		if err := s.fs.FileDelete(path); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("deleted stale snapshot file", "path", path.String())
	}
	return errors.Join(errs...)
}

func (s *System) removeSelfieOnce(path contracts.TypedPath) error {
	content, err := s.fs.FileRead(path)
	if err != nil {
		return err
	}
	source, err := source_file.New(path.Name(), content, s.layout.JavaVersion())
	if err != nil {
		return err
	}
	source.RemoveSelfieOnceComments()
	if err := s.fs.FileWrite(path, source.String()); err != nil {
		return err
	}
	s.logger.Debug("removed selfieonce comment", "path", path.String())
	return nil
}

// StaleSnapshotFiles lists the snapshot files under the root whose class the discovery doesn't know.
func (s *System) StaleSnapshotFiles() ([]contracts.TypedPath, error) {
	if s.discovery == nil {
		return nil, nil
	}
	return s.staleSnapshotFiles()
}

func (s *System) staleSnapshotFiles() ([]contracts.TypedPath, error) {
	return FindSnapshotFiles(s.layout, func(className string) bool {
		_, exists := s.discovery.TestMethods(className)
		return !exists
	})
}

// FindSnapshotFiles walks the snapshot root for files with the layout's extension whose
// class name matches keep.
func FindSnapshotFiles(layout contracts.ILayout, keep func(className string) bool) ([]contracts.TypedPath, error) {
	root := layout.RootFolder()
	var found []contracts.TypedPath
	var walkErr error
	err := layout.FS().FileWalk(root, func(path contracts.TypedPath) bool {
		if !strings.HasSuffix(path.Name(), layout.Extension()) {
			return true
		}
		subpath, err := root.Relativize(path)
		if err != nil {
			walkErr = err
			return false
		}
		if keep(layout.SubpathToClassName(subpath)) {
			found = append(found, path)
		}
		return true
	})
	return found, errors.Join(err, walkErr)
}
