package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// IgnoreFileName lists extra patterns skipped when walking the snapshot root.
const IgnoreFileName = ".selfie-ignore"

// ignoreCacheEntry holds cached ignore patterns with metadata
type ignoreCacheEntry struct {
	patterns []string
	modTime  time.Time
}

// Global cache for ignore patterns
var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// GetIgnorePatterns reads and returns the patterns from the .selfie-ignore file in dir.
// If the file does not exist, it returns an empty pattern list.
// Patterns are cached until the file's modification time changes.
func GetIgnorePatterns(dir string) ([]string, error) {
	ignorePath := filepath.Join(dir, IgnoreFileName)

	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error checking %s: %w", IgnoreFileName, err)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists {
		if fileInfo.ModTime().Equal(cached.modTime) {
			cacheMutex.RUnlock()
			return cached.patterns, nil
		}
	}
	cacheMutex.RUnlock()

	patterns, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}

	// default ignored folders are skipped anyway
	var validPatterns []string
	for _, pattern := range patterns {
		if !IsDefaultIgnored(pattern) {
			validPatterns = append(validPatterns, pattern)
		}
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{
		patterns: validPatterns,
		modTime:  fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return validPatterns, nil
}

// IsDefaultIgnored reports whether any segment of path is a build or tool folder
// that never holds snapshots or test sources.
func IsDefaultIgnored(path string) bool {
	ignoredFolders := []string{
		".git",
		".svn",
		".idea",
		".vscode",
		".gradle",
		".cache",
		"build",
		"target",
		"bin",
		"obj",
		"out",
		"dist",
		"node_modules",
	}

	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, part := range parts {
		part = strings.ToLower(part)
		for _, folder := range ignoredFolders {
			if part == folder {
				return true
			}
		}
	}
	return false
}

func readIgnoreFile(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	var patterns []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// IsIgnored checks if a slash separated relative path matches any of the patterns.
func IsIgnored(path string, patterns []string) bool {
	for _, pattern := range patterns {
		match, _ := filepath.Match(pattern, path)
		if match {
			return true
		}
		if match, _ := filepath.Match(pattern, filepath.Base(strings.TrimSuffix(path, "/"))); match {
			return true
		}
		// "dir/" ignores the entire directory
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return false
}

// ClearIgnoreCache clears all cached ignore patterns
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}
