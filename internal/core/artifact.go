package core

import (
	"path/filepath"
	"strings"
)

// Artifact is a resolved dependency archive.
//
// Artifacts are read-only for the whole pipeline; they exist for the lifetime of
// one dependency resolution.
type Artifact struct {
	// Path is the absolute, cleaned file path of the archive.
	Path string

	// ID is a human readable identity used in error messages and logs.
	// It defaults to the file name.
	ID string
}

// NewArtifact returns an artifact for path with its file name as identity.
func NewArtifact(path string) Artifact {
	clean := filepath.Clean(path)
	return Artifact{Path: clean, ID: filepath.Base(clean)}
}

// Name returns the artifact's file name.
func (a Artifact) Name() string { return filepath.Base(a.Path) }

// HasSuffix reports whether the artifact file name ends with suffix.
func (a Artifact) HasSuffix(suffix string) bool {
	return strings.HasSuffix(a.Name(), suffix)
}

func (a Artifact) String() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Path
}

// ArtifactSet is an ordered collection of artifacts, unique by path.
// Insertion order is preserved; the first occurrence of a path wins.
type ArtifactSet struct {
	artifacts []Artifact
	seen      map[string]struct{}
}

// NewArtifactSet returns a set holding the given artifacts in order.
func NewArtifactSet(artifacts ...Artifact) *ArtifactSet {
	s := &ArtifactSet{seen: make(map[string]struct{}, len(artifacts))}
	s.Add(artifacts...)
	return s
}

// Add appends artifacts not already present.
func (s *ArtifactSet) Add(artifacts ...Artifact) {
	if s.seen == nil {
		s.seen = make(map[string]struct{}, len(artifacts))
	}
	for _, a := range artifacts {
		if _, ok := s.seen[a.Path]; ok {
			continue
		}
		s.seen[a.Path] = struct{}{}
		s.artifacts = append(s.artifacts, a)
	}
}

// Len returns the number of artifacts.
func (s *ArtifactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.artifacts)
}

// List returns a copy of the artifacts in insertion order.
func (s *ArtifactSet) List() []Artifact {
	if s == nil {
		return nil
	}
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}
