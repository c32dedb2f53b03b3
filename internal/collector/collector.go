// Package collector gathers the set of candidate IaC source files for a
// scan run. It performs read-only filesystem traversal only; detection of
// issues inside the files is the scanner's job.
package collector

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns matches the IaC formats the supported scanners understand.
var DefaultPatterns = []string{
	"**/*.tf",
	"**/*.tf.json",
	"**/*.yaml",
	"**/*.yml",
	"**/*.json",
	"**/Dockerfile",
}

// skipDirs are directory names never descended into.
var skipDirs = map[string]struct{}{
	".git":         {},
	".terraform":   {},
	".shiftgate":   {},
	"node_modules": {},
}

// CollectionError reports that the scan root could not be traversed.
type CollectionError struct {
	Root string
	Err  error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect sources under %q: %v", e.Root, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// Collect walks root and returns the relative paths of all files matching
// at least one of the doublestar patterns. A nil or empty patterns slice
// selects DefaultPatterns. The result is deterministic (lexical walk
// order) and the walk is restartable: Collect holds no state between calls.
//
// It fails with *CollectionError when root does not exist, is not a
// directory, or cannot be read.
func Collect(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &CollectionError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &CollectionError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	var out []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range patterns {
			ok, matchErr := doublestar.Match(pattern, rel)
			if matchErr != nil {
				return fmt.Errorf("pattern %q: %w", pattern, matchErr)
			}
			if ok {
				out = append(out, rel)
				return nil
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, &CollectionError{Root: root, Err: walkErr}
	}

	return out, nil
}
