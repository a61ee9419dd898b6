package testutil

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
)

// Layout is a contracts.ILayout over a MemFS with everything rooted at Root.
// Snapshots of class `a.b.C` live at `<Root>a/b/C.ss`.
type Layout struct {
	Root          contracts.TypedPath
	Files         *MemFS
	AllowMultiple bool
	Java          int
	Unix          bool
	Ext           string
	Smuggled      error
}

func NewLayout(files *MemFS) *Layout {
	return &Layout{
		Root:          contracts.OfFolder("/src"),
		Files:         files,
		AllowMultiple: true,
		Java:          17,
		Unix:          true,
		Ext:           ".ss",
	}
}

func (l *Layout) RootFolder() contracts.TypedPath { return l.Root }
func (l *Layout) FS() contracts.IFileSystem { return l.Files }
func (l *Layout) AllowMultipleEquivalentWritesToOneLocation() bool { return l.AllowMultiple }
func (l *Layout) JavaVersion() int { return l.Java }
func (l *Layout) UnixNewlines() bool { return l.Unix }
func (l *Layout) Extension() string { return l.Ext }
func (l *Layout) CheckForSmuggledError() error { return l.Smuggled }

func (l *Layout) SourcePathForCall(call call_stack.CallLocation) (contracts.TypedPath, error) {
	var found contracts.TypedPath
	ok := false
	_ = l.Files.FileWalk(l.Root, func(path contracts.TypedPath) bool {
		if path.Name() == call.FileName {
			found, ok = path, true
		}
		return !ok
	})
	if !ok {
		return contracts.TypedPath{}, fmt.Errorf("couldn't find source file for %s", call)
	}
	return found, nil
}

func (l *Layout) SnapshotPathForClass(className string) (contracts.TypedPath, error) {
	return l.Root.ResolveFile(strings.ReplaceAll(className, ".", "/") + l.Ext)
}

func (l *Layout) SubpathToClassName(subpath string) string {
	return strings.ReplaceAll(strings.TrimSuffix(subpath, l.Ext), "/", ".")
}

// Discovery is a contracts.ITestDiscovery backed by a map of class name to test names.
type Discovery map[string][]string

func (d Discovery) TestMethods(className string) ([]string, bool) {
	tests, ok := d[className]
	return tests, ok
}
