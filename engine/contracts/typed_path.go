package contracts

import (
	"fmt"
	"strings"
)

// TypedPath is a unix-style absolute path where a trailing slash means a folder.
type TypedPath struct {
	AbsolutePath string
}

// OfFolder returns a folder path, adding the trailing slash if needed.
func OfFolder(path string) TypedPath {
	unixPath := strings.ReplaceAll(path, `\`, "/")
	if !strings.HasSuffix(unixPath, "/") {
		unixPath += "/"
	}
	return TypedPath{AbsolutePath: unixPath}
}

// OfFile returns a file path, which must not end with a slash.
func OfFile(path string) (TypedPath, error) {
	unixPath := strings.ReplaceAll(path, `\`, "/")
	if strings.HasSuffix(unixPath, "/") {
		return TypedPath{}, fmt.Errorf("expected path to not end with a slash, but got %s", unixPath)
	}
	return TypedPath{AbsolutePath: unixPath}, nil
}

// Name is the last segment of the path, empty for folders.
func (p TypedPath) Name() string {
	return p.AbsolutePath[strings.LastIndexByte(p.AbsolutePath, '/')+1:]
}

func (p TypedPath) IsFolder() bool { return strings.HasSuffix(p.AbsolutePath, "/") }

func (p TypedPath) String() string { return p.AbsolutePath }

func (p TypedPath) Compare(other TypedPath) int {
	return strings.Compare(p.AbsolutePath, other.AbsolutePath)
}

func (p TypedPath) assertFolder() error {
	if !p.IsFolder() {
		return fmt.Errorf("expected %s to be a folder but it doesn't end with `/`", p)
	}
	return nil
}

// ParentFolder returns the folder containing this file, or the parent of this folder.
func (p TypedPath) ParentFolder() (TypedPath, error) {
	trimmed := strings.TrimSuffix(p.AbsolutePath, "/")
	lastIdx := strings.LastIndexByte(trimmed, '/')
	if lastIdx == -1 {
		return TypedPath{}, fmt.Errorf("%s has no parent folder", p)
	}
	return OfFolder(trimmed[:lastIdx+1]), nil
}

func checkChild(child string) error {
	if strings.HasPrefix(child, "/") {
		return fmt.Errorf("expected child to not start with a slash, but got %s", child)
	}
	return nil
}

func (p TypedPath) ResolveFile(child string) (TypedPath, error) {
	if err := p.assertFolder(); err != nil {
		return TypedPath{}, err
	}
	if err := checkChild(child); err != nil {
		return TypedPath{}, err
	}
	return OfFile(p.AbsolutePath + child)
}

func (p TypedPath) ResolveFolder(child string) (TypedPath, error) {
	if err := p.assertFolder(); err != nil {
		return TypedPath{}, err
	}
	if err := checkChild(child); err != nil {
		return TypedPath{}, err
	}
	return OfFolder(p.AbsolutePath + child), nil
}

// Relativize returns the path of child relative to this folder.
func (p TypedPath) Relativize(child TypedPath) (string, error) {
	if err := p.assertFolder(); err != nil {
		return "", err
	}
	if !strings.HasPrefix(child.AbsolutePath, p.AbsolutePath) {
		return "", fmt.Errorf("expected %s to start with %s", child, p)
	}
	return child.AbsolutePath[len(p.AbsolutePath):], nil
}
