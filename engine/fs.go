package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/utils"
)

// OSFileSystem is the contracts.IFileSystem backed by the real disk.
type OSFileSystem struct {
	// IgnorePatterns are skipped by FileWalk, in addition to the default ignored folders.
	IgnorePatterns []string
}

func NewOSFileSystem(ignorePatterns []string) *OSFileSystem {
	return &OSFileSystem{IgnorePatterns: ignorePatterns}
}

func osPath(path contracts.TypedPath) string { return filepath.FromSlash(path.AbsolutePath) }

func (f *OSFileSystem) FileExists(path contracts.TypedPath) bool {
	info, err := os.Stat(osPath(path))
	return err == nil && info.Mode().IsRegular()
}

func (f *OSFileSystem) FileRead(path contracts.TypedPath) (string, error) {
	content, err := f.FileReadBinary(path)
	return string(content), err
}

func (f *OSFileSystem) FileReadBinary(path contracts.TypedPath) ([]byte, error) {
	content, err := os.ReadFile(osPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return content, nil
}

func (f *OSFileSystem) FileWrite(path contracts.TypedPath, content string) error {
	return f.FileWriteBinary(path, []byte(content))
}

// FileWriteBinary writes to a temporary file next to path and renames it into place,
// so a crashed run never leaves a half written snapshot.
func (f *OSFileSystem) FileWriteBinary(path contracts.TypedPath, content []byte) error {
	target := osPath(path)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (f *OSFileSystem) FileDelete(path contracts.TypedPath) error {
	target := osPath(path)
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	parent := filepath.Dir(target)
	entries, err := os.ReadDir(parent)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(parent)
	}
	return nil
}

func (f *OSFileSystem) FileWalk(folder contracts.TypedPath, visit func(contracts.TypedPath) bool) error {
	root := osPath(folder)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		relative, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path != root && (utils.IsDefaultIgnored(relative) || utils.IsIgnored(filepath.ToSlash(relative)+"/", f.IgnorePatterns)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || utils.IsIgnored(filepath.ToSlash(relative), f.IgnorePatterns) {
			return nil
		}
		typed, err := contracts.OfFile(path)
		if err != nil {
			return err
		}
		if !visit(typed) {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", folder, err)
	}
	return nil
}

func (f *OSFileSystem) AssertFailed(message string, expected any, actual any) error {
	return &AssertionError{Message: message, Expected: expected, Actual: actual}
}
