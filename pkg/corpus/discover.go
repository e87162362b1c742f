package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns the files under dir matching any of the include globs, as
// slash-separated paths relative to dir, sorted and de-duplicated. Paths under
// any exclude directory are dropped.
func Discover(dir string, include []string, exclude ...string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", dir)
	}

	if len(include) == 0 {
		include = DefaultConfig().Include
	}

	prefixes := excludedPrefixes(dir, exclude)
	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var matches []string

	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %q", pattern)
		}
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob error: %w", err)
		}
		for _, match := range found {
			if seen[match] || isExcluded(match, prefixes) {
				continue
			}
			seen[match] = true
			matches = append(matches, match)
		}
	}

	sort.Strings(matches)
	return matches, nil
}

// excludedPrefixes converts exclude directories nested inside dir into
// slash-separated relative prefixes.
func excludedPrefixes(dir string, exclude []string) []string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	var prefixes []string
	for _, path := range exclude {
		if path == "" {
			continue
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, absPath)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		prefixes = append(prefixes, filepath.ToSlash(rel)+"/")
	}
	return prefixes
}

func isExcluded(match string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(match, prefix) {
			return true
		}
	}
	return false
}
