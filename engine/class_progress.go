package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/meysamhadeli/selfie/arraymap"
	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/snapshot"
	"github.com/meysamhadeli/selfie/snapshot_gc"
	"github.com/meysamhadeli/selfie/write_tracker"
)

// ClassProgress tracks the tests of one class and owns its snapshot file.
// The file is parsed on first use and written back when the last container finishes.
type ClassProgress struct {
	system    *System
	className string

	// mutex guards every field below, tests included. The maps are immutable values but
	// replacing them is not atomic with the reads around it.
	mutex sync.Mutex
	// nil once the class is finished
	tests            *arraymap.Map[string, *snapshot_gc.WithinTestGC]
	diskWriteTracker *write_tracker.DiskWriteTracker
	file             *snapshot.File
	loadedHash       xxh3.Uint128
	loadedFromDisk   bool
	containers       int
	hasFailed        bool
}

func newClassProgress(system *System, className string) *ClassProgress {
	return &ClassProgress{
		system:           system,
		className:        className,
		tests:            arraymap.EmptyMap[string, *snapshot_gc.WithinTestGC](arraymap.CompareSlashFirst),
		diskWriteTracker: write_tracker.NewDiskWriteTracker(),
	}
}

func (p *ClassProgress) ClassName() string { return p.className }

func (p *ClassProgress) assertNotTerminated() error {
	if p.tests == nil {
		return fmt.Errorf("%w: %s", ErrTerminated, p.className)
	}
	return nil
}

func (p *ClassProgress) IncrementContainers() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return err
	}
	p.containers++
	return nil
}

// DecrementContainersWithSuccess closes a container. Closing the last one finishes the class.
func (p *ClassProgress) DecrementContainersWithSuccess(success bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return err
	}
	if !success {
		p.hasFailed = true
	}
	p.containers--
	if p.containers > 0 {
		return nil
	}
	return p.finishedClassWithSuccess(!p.hasFailed)
}

// StartTest registers test and returns a context carrying its DiskStorage.
func (p *ClassProgress) StartTest(ctx context.Context, test string) (context.Context, error) {
	if strings.Contains(test, "/") {
		return ctx, fmt.Errorf("Test name cannot contain '/', was %s", test)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return ctx, err
	}
	p.tests = p.tests.PlusOrNoOp(test, snapshot_gc.New())
	return WithDiskStorage(ctx, &DiskStorage{progress: p, test: test}), nil
}

// FinishedTestWithSuccess records the outcome of test. A failed test keeps all of its snapshots.
func (p *ClassProgress) FinishedTestWithSuccess(test string, success bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return err
	}
	gc, err := p.testGC(test)
	if err != nil {
		return err
	}
	if !success {
		gc.KeepAll()
	}
	return nil
}

func (p *ClassProgress) testGC(test string) (*snapshot_gc.WithinTestGC, error) {
	gc, ok := p.tests.Get(test)
	if !ok {
		return nil, fmt.Errorf("test %s of %s was never started", test, p.className)
	}
	return gc, nil
}

func (p *ClassProgress) finishedClassWithSuccess(success bool) error {
	discovery := p.system.discovery
	var didntRun []string
	known := false
	if discovery != nil {
		didntRun, known = p.testMethodsThatDidntRun()
	}
	tests := p.tests
	p.tests = nil
	p.diskWriteTracker = nil

	path, err := p.system.layout.SnapshotPathForClass(p.className)
	if err != nil {
		return err
	}
	fs := p.system.fs
	if p.file == nil {
		if !known || !snapshot_gc.IsUnusedSnapshotFileStale(tests, didntRun, success) || !fs.FileExists(path) {
			return nil
		}
		p.system.logger.Info("deleting snapshot file of class which uses no snapshots", "class", p.className, "path", path.String())
		return fs.FileDelete(path)
	}

	if discovery != nil {
		if !known {
			didntRun = p.snapshotRootsThatDidntRun(tests)
		}
		stale := snapshot_gc.FindStaleSnapshotsWithin(p.file.Snapshots().Keys(), tests, didntRun)
		if len(stale) > 0 {
			p.system.logger.Debug("pruning stale snapshots", "class", p.className, "count", len(stale))
			p.file.RemoveAllIndices(stale)
		}
	}
	if !p.file.WasSetAtTestTime() {
		return nil
	}
	if p.file.Snapshots().IsEmpty() {
		if !fs.FileExists(path) {
			return nil
		}
		p.system.logger.Info("deleting empty snapshot file", "class", p.className, "path", path.String())
		return fs.FileDelete(path)
	}
	if err := p.system.markPathAsWritten(path); err != nil {
		return err
	}
	content := p.file.Bytes()
	if p.loadedFromDisk && xxh3.Hash128(content) == p.loadedHash {
		p.system.logger.Debug("snapshot file unchanged", "path", path.String())
		return nil
	}
	if err := fs.FileWriteBinary(path, content); err != nil {
		return err
	}
	p.system.logger.Info("wrote snapshot file", "class", p.className, "path", path.String(), "snapshots", p.file.Snapshots().Len())
	return nil
}

// testMethodsThatDidntRun is only known when discovery could name every test of the class.
func (p *ClassProgress) testMethodsThatDidntRun() ([]string, bool) {
	methods, ok := p.system.discovery.TestMethods(p.className)
	if !ok || methods == nil {
		p.system.logger.Debug("tests of class are unknown, keeping snapshots of tests which didn't run", "class", p.className)
		return nil, false
	}
	var didntRun []string
	for _, method := range methods {
		if !p.tests.ContainsKey(method) {
			didntRun = append(didntRun, method)
		}
	}
	slices.SortFunc(didntRun, arraymap.CompareSlashFirst)
	return didntRun, true
}

// snapshotRootsThatDidntRun names the tests of the file's snapshots which didn't run, so that
// all of them are kept.
func (p *ClassProgress) snapshotRootsThatDidntRun(tests *arraymap.Map[string, *snapshot_gc.WithinTestGC]) []string {
	var didntRun []string
	for _, key := range p.file.Snapshots().Keys() {
		test, _, _ := strings.Cut(key, "/")
		if !tests.ContainsKey(test) {
			didntRun = append(didntRun, test)
		}
	}
	slices.SortFunc(didntRun, arraymap.CompareSlashFirst)
	return slices.Compact(didntRun)
}

func (p *ClassProgress) snapshotFile() (*snapshot.File, error) {
	if p.file != nil {
		return p.file, nil
	}
	layout := p.system.layout
	path, err := layout.SnapshotPathForClass(p.className)
	if err != nil {
		return nil, err
	}
	if !p.system.fs.FileExists(path) {
		p.file = snapshot.NewEmptyFile(layout.UnixNewlines())
		return p.file, nil
	}
	content, err := p.system.fs.FileReadBinary(path)
	if err != nil {
		return nil, err
	}
	file, err := snapshot.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	p.file, p.loadedHash, p.loadedFromDisk = file, xxh3.Hash128(content), true
	return p.file, nil
}

func (p *ClassProgress) read(test, suffix string) (snapshot.Snapshot, bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return snapshot.Snapshot{}, false, err
	}
	gc, err := p.testGC(test)
	if err != nil {
		return snapshot.Snapshot{}, false, err
	}
	file, err := p.snapshotFile()
	if err != nil {
		return snapshot.Snapshot{}, false, err
	}
	found, ok := file.Snapshots().Get(test + suffix)
	if ok {
		gc.KeepSuffix(suffix)
	}
	return found, ok, nil
}

func (p *ClassProgress) write(test, suffix string, actual snapshot.Snapshot, call call_stack.CallStack) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return err
	}
	gc, err := p.testGC(test)
	if err != nil {
		return err
	}
	key := test + suffix
	if err := p.diskWriteTracker.Record(key, actual, call, p.system.layout); err != nil {
		return err
	}
	gc.KeepSuffix(suffix)
	file, err := p.snapshotFile()
	if err != nil {
		return err
	}
	file.SetAtTestTime(key, actual)
	return nil
}

func (p *ClassProgress) keep(test, suffix string, all bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.assertNotTerminated(); err != nil {
		return err
	}
	gc, err := p.testGC(test)
	if err != nil {
		return err
	}
	if all {
		gc.KeepAll()
	} else {
		gc.KeepSuffix(suffix)
	}
	return nil
}
