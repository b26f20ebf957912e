package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrMissingIndex is returned when the index root does not exist.
	ErrMissingIndex = errors.New("index directory not found")
	// ErrNoIndexFiles is returned when no file below the root matches.
	ErrNoIndexFiles = errors.New("no index files found")
)

// DefaultPatterns match crate files in the crates.io index layout:
// 1/a, 2/ab, 3/a/abc and ab/cd/abcd...
var DefaultPatterns = []string{"{1,2}/*", "3/*/*", "??/??/*"}

// RegistryPatterns prefixes patterns with one directory level, for roots
// such as ~/.cargo/registry/index that hold one checkout per registry.
func RegistryPatterns(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = "*/" + p
	}
	return out
}

// Discover expands patterns relative to root and returns the matching
// regular files, sorted and without duplicates.
func Discover(root string, patterns []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingIndex, root)
		}
		return nil, fmt.Errorf("checking index directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMissingIndex, root)
	}

	// Patterns are matched against the tree, never against root itself,
	// which may contain glob metacharacters.
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		for _, rel := range matches {
			m := filepath.Join(root, filepath.FromSlash(rel))
			if seen[m] {
				continue
			}
			fi, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("checking index file: %w", err)
			}
			if !fi.Mode().IsRegular() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s matches none of %v", ErrNoIndexFiles, root, patterns)
	}

	sort.Strings(files)
	return files, nil
}
