package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ListFiles returns the regular files under dir as slash-separated paths relative
// to dir, strictly sorted.
//
// Directories are never returned; a directory with no files below it contributes
// nothing. A missing dir yields an empty list.
func ListFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("stat %q: %w", dir, err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", dir, err)
	}

	// Do not rely on filesystem ordering.
	sort.Strings(files)
	return files, nil
}

// deduplicateSorted removes duplicates from a sorted slice.
func deduplicateSorted(sorted []string) []string {
	if len(sorted) == 0 {
		return sorted
	}

	result := make([]string, 0, len(sorted))
	result = append(result, sorted[0])
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}

// SortedUnique returns a sorted copy of values without duplicates.
func SortedUnique(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return deduplicateSorted(out)
}
