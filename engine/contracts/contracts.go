package contracts

import (
	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/snapshot"
)

// IFileSystem is the file access the engine needs. Implementations must be safe for concurrent use.
type IFileSystem interface {
	FileExists(path TypedPath) bool
	FileRead(path TypedPath) (string, error)
	FileReadBinary(path TypedPath) ([]byte, error)
	FileWrite(path TypedPath, content string) error
	FileWriteBinary(path TypedPath, content []byte) error
	// FileDelete removes the file, and its parent folder if that is now empty.
	FileDelete(path TypedPath) error
	// FileWalk visits the files (not folders) below folder until visit returns false.
	FileWalk(folder TypedPath, visit func(TypedPath) bool) error
	// AssertFailed builds the error reported to the test framework for a failed assertion.
	AssertFailed(message string, expected any, actual any) error
}

// ILayout maps classes to snapshot files and call sites to source files.
type ILayout interface {
	RootFolder() TypedPath
	FS() IFileSystem
	AllowMultipleEquivalentWritesToOneLocation() bool
	JavaVersion() int
	// UnixNewlines is the newline style for snapshot files which don't exist yet.
	UnixNewlines() bool
	Extension() string
	SourcePathForCall(call call_stack.CallLocation) (TypedPath, error)
	SnapshotPathForClass(className string) (TypedPath, error)
	SubpathToClassName(subpath string) string
	// CheckForSmuggledError returns a configuration error which was deferred until first use.
	CheckForSmuggledError() error
}

// IDiskStorage is the disk snapshot storage of the test currently running.
type IDiskStorage interface {
	ReadDisk(sub string, call call_stack.CallStack) (snapshot.Snapshot, bool, error)
	WriteDisk(actual snapshot.Snapshot, sub string, call call_stack.CallStack) error
	// Keep marks a sub snapshot as used so it survives pruning.
	Keep(sub string) error
	// KeepAll excludes the current test from pruning.
	KeepAll() error
}

// ITestDiscovery answers which tests a class declares, so snapshots of tests which did not run are kept.
type ITestDiscovery interface {
	// TestMethods lists the tests of className, false when the class no longer exists.
	// Nil tests of an existing class mean they are unknown, and none of its snapshots are pruned.
	TestMethods(className string) ([]string, bool)
}
