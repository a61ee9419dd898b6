package engine

import (
	"context"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/snapshot"
)

// DiskStorage is the contracts.IDiskStorage of one running test.
type DiskStorage struct {
	progress *ClassProgress
	test     string
}

var _ contracts.IDiskStorage = (*DiskStorage)(nil)

func (d *DiskStorage) Test() string { return d.test }

func (d *DiskStorage) ClassName() string { return d.progress.className }

// System returns the run this storage belongs to.
func (d *DiskStorage) System() *System { return d.progress.system }

func suffix(sub string) string {
	if sub == "" {
		return ""
	}
	return "/" + sub
}

func (d *DiskStorage) ReadDisk(sub string, _ call_stack.CallStack) (snapshot.Snapshot, bool, error) {
	return d.progress.read(d.test, suffix(sub))
}

func (d *DiskStorage) WriteDisk(actual snapshot.Snapshot, sub string, call call_stack.CallStack) error {
	return d.progress.write(d.test, suffix(sub), actual, call)
}

func (d *DiskStorage) Keep(sub string) error {
	return d.progress.keep(d.test, suffix(sub), false)
}

func (d *DiskStorage) KeepAll() error {
	return d.progress.keep(d.test, "", true)
}

type diskStorageKey struct{}

// WithDiskStorage binds storage to ctx, for tests driven by something other than ClassProgress.
func WithDiskStorage(ctx context.Context, storage contracts.IDiskStorage) context.Context {
	return context.WithValue(ctx, diskStorageKey{}, storage)
}

// DiskStorageFrom returns the storage bound by ClassProgress.StartTest.
func DiskStorageFrom(ctx context.Context) (contracts.IDiskStorage, error) {
	storage, ok := ctx.Value(diskStorageKey{}).(contracts.IDiskStorage)
	if !ok {
		return nil, ErrNoDiskStorage
	}
	return storage, nil
}
