package testutil

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"github.com/meysamhadeli/selfie/engine/contracts"
)

// AssertionFailure is what MemFS.AssertFailed produces.
type AssertionFailure struct {
	Message  string
	Expected any
	Actual   any
}

func (e *AssertionFailure) Error() string { return e.Message }

// MemFS is an in-memory contracts.IFileSystem. Folders exist implicitly.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Set stores content at path and returns the path.
func (m *MemFS) Set(path string, content string) contracts.TypedPath {
	typed, err := contracts.OfFile(path)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[typed.AbsolutePath] = []byte(content)
	return typed
}

// Get returns the content at path.
func (m *MemFS) Get(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[path]
	return string(content), ok
}

// Paths lists every file, sorted.
func (m *MemFS) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func (m *MemFS) FileExists(path contracts.TypedPath) bool {
	_, ok := m.Get(path.AbsolutePath)
	return ok
}

func (m *MemFS) FileRead(path contracts.TypedPath) (string, error) {
	content, err := m.FileReadBinary(path)
	return string(content), err
}

func (m *MemFS) FileReadBinary(path contracts.TypedPath) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[path.AbsolutePath]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
	}
	return slices.Clone(content), nil
}

func (m *MemFS) FileWrite(path contracts.TypedPath, content string) error {
	return m.FileWriteBinary(path, []byte(content))
}

func (m *MemFS) FileWriteBinary(path contracts.TypedPath, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.AbsolutePath] = slices.Clone(content)
	return nil
}

func (m *MemFS) FileDelete(path contracts.TypedPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path.AbsolutePath]; !ok {
		return fmt.Errorf("delete %s: %w", path, fs.ErrNotExist)
	}
	delete(m.files, path.AbsolutePath)
	return nil
}

func (m *MemFS) FileWalk(folder contracts.TypedPath, visit func(contracts.TypedPath) bool) error {
	for _, path := range m.Paths() {
		if !strings.HasPrefix(path, folder.AbsolutePath) {
			continue
		}
		if !visit(contracts.TypedPath{AbsolutePath: path}) {
			return nil
		}
	}
	return nil
}

func (m *MemFS) AssertFailed(message string, expected any, actual any) error {
	return &AssertionFailure{Message: message, Expected: expected, Actual: actual}
}
