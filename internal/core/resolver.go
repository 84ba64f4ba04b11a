package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveArtifacts expands dependency path patterns into artifacts.
//
// Patterns keep their declaration order, which decides precedence between
// artifacts. The matches of one glob pattern are sorted, so filesystem
// ordering never leaks into the result. A literal path is kept even when the
// file does not exist yet; reading it reports the failure with the artifact's
// identity. Directories are skipped and duplicates keep their first position.
func ResolveArtifacts(baseDir string, patterns []string) ([]Artifact, error) {
	set := NewArtifactSet()
	for _, pattern := range patterns {
		paths, err := expandPattern(baseDir, pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, p := range paths {
			set.Add(NewArtifact(p))
		}
	}
	return set.List(), nil
}

func expandPattern(baseDir, pattern string) ([]string, error) {
	// Only the declared pattern decides whether to glob; meta characters in
	// baseDir are matched literally.
	if !containsGlobChar(pattern) {
		if filepath.IsAbs(pattern) {
			return []string{filepath.Clean(pattern)}, nil
		}
		return []string{filepath.Join(baseDir, pattern)}, nil
	}
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(escapeGlob(baseDir), pattern)
	}

	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", m, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

func containsGlobChar(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', ']':
			return true
		}
	}
	return false
}

// escapeGlob quotes the meta characters of a literal path for filepath.Glob.
func escapeGlob(p string) string {
	var b strings.Builder
	for _, c := range p {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
