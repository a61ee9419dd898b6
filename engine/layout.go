package engine

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/lru_cache"
)

// StandardDirs are the test folders probed for the snapshot root, in order. The first which
// exists holds snapshots, all of them are searched for sources.
var StandardDirs = []string{
	"src/test/java",
	"src/test/kotlin",
	"src/test/groovy",
	"src/test/scala",
	"src/test/resources",
}

// LikelyExtensions are tried when a call location only knows its class.
var LikelyExtensions = []string{"kt", "java", "scala", "groovy", "clj", "cljc", "ts", "js"}

const (
	DefaultExtension   = ".ss"
	DefaultJavaVersion = 17
	sourceCacheSize    = 64
)

// LayoutOptions configure NewLayout. Zero values fall back to the defaults.
type LayoutOptions struct {
	// ProjectDir is where StandardDirs are looked up, required unless SnapshotRoot is set.
	ProjectDir string
	// SnapshotRoot overrides the first existing StandardDirs entry.
	SnapshotRoot string
	// SourceRoots are searched for test sources in addition to the snapshot root.
	SourceRoots []string
	// SnapshotFolderName puts snapshots in a sub folder of each package, empty for none.
	SnapshotFolderName string
	Extension          string
	JavaVersion        int
	// StrictWrites rejects writing the same value twice to one location.
	StrictWrites bool
	// UnixNewlines forces the newline style of new snapshot files, nil infers it from the root.
	UnixNewlines *bool
}

// Layout is the contracts.ILayout of a JVM project checked out on fs.
type Layout struct {
	fs          contracts.IFileSystem
	options     LayoutOptions
	root        contracts.TypedPath
	sourceRoots []contracts.TypedPath
	smuggled    error
	sources     *lru_cache.ComputingCache[call_stack.CallLocation, contracts.TypedPath]

	newlinesOnce sync.Once
	unixNewlines bool
}

// NewLayout resolves the snapshot root. A project without any test folder is not an error yet,
// it is smuggled into the first write so that tests without snapshots still pass.
func NewLayout(fs contracts.IFileSystem, options LayoutOptions) *Layout {
	if options.Extension == "" {
		options.Extension = DefaultExtension
	}
	if options.JavaVersion == 0 {
		options.JavaVersion = DefaultJavaVersion
	}
	l := &Layout{fs: fs, options: options}
	l.sources = lru_cache.NewComputing(sourceCacheSize, call_stack.CallLocation.SamePathAs, l.findSourceFile)

	project := contracts.OfFolder(options.ProjectDir)
	var candidates []contracts.TypedPath
	for _, dir := range StandardDirs {
		folder, err := project.ResolveFolder(dir)
		if err == nil {
			candidates = append(candidates, folder)
		}
	}
	if options.SnapshotRoot != "" {
		l.root = contracts.OfFolder(options.SnapshotRoot)
	} else {
		found := false
		for _, folder := range candidates {
			if l.folderHasFiles(folder) {
				l.root, found = folder, true
				break
			}
		}
		if !found {
			l.root = project
			l.smuggled = fmt.Errorf("could not find a standard test directory in %s, looked in %s; set snapshot_root to choose one",
				options.ProjectDir, strings.Join(StandardDirs, ", "))
		}
	}
	l.sourceRoots = append(l.sourceRoots, l.root)
	for _, folder := range candidates {
		if folder != l.root {
			l.sourceRoots = append(l.sourceRoots, folder)
		}
	}
	for _, dir := range options.SourceRoots {
		folder := contracts.OfFolder(dir)
		if !slices.Contains(l.sourceRoots, folder) {
			l.sourceRoots = append(l.sourceRoots, folder)
		}
	}
	return l
}

func (l *Layout) folderHasFiles(folder contracts.TypedPath) bool {
	found := false
	_ = l.fs.FileWalk(folder, func(contracts.TypedPath) bool {
		found = true
		return false
	})
	return found
}

func (l *Layout) RootFolder() contracts.TypedPath { return l.root }

// SourceRoots lists every folder searched for test sources, the snapshot root first.
func (l *Layout) SourceRoots() []contracts.TypedPath { return slices.Clone(l.sourceRoots) }

func (l *Layout) FS() contracts.IFileSystem { return l.fs }

func (l *Layout) AllowMultipleEquivalentWritesToOneLocation() bool { return !l.options.StrictWrites }

func (l *Layout) JavaVersion() int { return l.options.JavaVersion }

func (l *Layout) Extension() string { return l.options.Extension }

func (l *Layout) CheckForSmuggledError() error { return l.smuggled }

// SourceCacheStats reports how often SourcePathForCall was answered without walking.
func (l *Layout) SourceCacheStats() lru_cache.Stats { return l.sources.Stats() }

// UnixNewlines infers the newline style from the first file under the root which has a newline.
func (l *Layout) UnixNewlines() bool {
	l.newlinesOnce.Do(func() {
		if l.options.UnixNewlines != nil {
			l.unixNewlines = *l.options.UnixNewlines
			return
		}
		l.unixNewlines = true
		_ = l.fs.FileWalk(l.root, func(file contracts.TypedPath) bool {
			content, err := l.fs.FileRead(file)
			if err != nil || !strings.Contains(content, "\n") {
				return true
			}
			l.unixNewlines = !strings.Contains(content, "\r\n")
			return false
		})
	})
	return l.unixNewlines
}

// SnapshotPathForClass maps `a.b.C` to `<root>a/b/[folder/]C.ss`.
func (l *Layout) SnapshotPathForClass(className string) (contracts.TypedPath, error) {
	lastDot := strings.LastIndexByte(className, '.')
	classFolder := l.root
	if lastDot != -1 {
		var err error
		classFolder, err = l.root.ResolveFolder(strings.ReplaceAll(className[:lastDot], ".", "/"))
		if err != nil {
			return contracts.TypedPath{}, err
		}
	}
	parentFolder := classFolder
	if l.options.SnapshotFolderName != "" {
		var err error
		parentFolder, err = classFolder.ResolveFolder(l.options.SnapshotFolderName)
		if err != nil {
			return contracts.TypedPath{}, err
		}
	}
	return parentFolder.ResolveFile(className[lastDot+1:] + l.options.Extension)
}

// SubpathToClassName is the inverse of SnapshotPathForClass for a path relative to the root.
func (l *Layout) SubpathToClassName(subpath string) string {
	segments := strings.Split(strings.TrimSuffix(subpath, l.options.Extension), "/")
	if folder := l.options.SnapshotFolderName; folder != "" && len(segments) >= 2 && segments[len(segments)-2] == folder {
		segments = slices.Delete(segments, len(segments)-2, len(segments)-1)
	}
	return strings.Join(segments, ".")
}

func (l *Layout) SourcePathForCall(call call_stack.CallLocation) (contracts.TypedPath, error) {
	return l.sources.Get(call)
}

func (l *Layout) findSourceFile(call call_stack.CallLocation) (contracts.TypedPath, error) {
	names := l.candidateNames(call)
	packageDir := ""
	if lastDot := strings.LastIndexByte(call.TypeName, '.'); lastDot != -1 {
		packageDir = strings.ReplaceAll(call.TypeName[:lastDot], ".", "/")
	}
	if packageDir != "" {
		for _, root := range l.sourceRoots {
			for _, name := range names {
				candidate, err := root.ResolveFile(path.Join(packageDir, name))
				if err == nil && l.fs.FileExists(candidate) {
					return candidate, nil
				}
			}
		}
	}
	for _, root := range l.sourceRoots {
		var found contracts.TypedPath
		ok := false
		err := l.fs.FileWalk(root, func(file contracts.TypedPath) bool {
			if slices.Contains(names, file.Name()) {
				found, ok = file, true
			}
			return !ok
		})
		if err != nil {
			return contracts.TypedPath{}, err
		}
		if ok {
			return found, nil
		}
	}
	return contracts.TypedPath{}, fmt.Errorf("unable to find the source file for %s in %s", call.IdeLink(), l.sourceRoots)
}

func (l *Layout) candidateNames(call call_stack.CallLocation) []string {
	if call.FileName != "" {
		return []string{call.FileName}
	}
	base := call.SourceFilenameWithoutExtension()
	names := make([]string, 0, len(LikelyExtensions))
	for _, ext := range LikelyExtensions {
		names = append(names, base+"."+ext)
	}
	return names
}
