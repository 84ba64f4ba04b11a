// Package prune removes generated sources for classes that a dependency
// artifact already provides in compiled form.
package prune

import (
	"path"
	"sort"
	"strings"

	"github.com/scylladb/go-set/strset"

	"schemadeps/internal/archive"
	"schemadeps/internal/core"
)

// Options selects qualifying artifacts and maps compiled entries to generated files.
type Options struct {
	// ArchiveSuffix marks artifacts holding compiled output, e.g. "jar".
	ArchiveSuffix string
	// CompiledSuffix marks compiled unit entries, e.g. ".class".
	CompiledSuffix string
	// GeneratedSuffix replaces CompiledSuffix, e.g. ".java".
	GeneratedSuffix string
}

// ExclusionSet is the set of generated file names, relative to an output
// directory, that must be deleted after generation.
type ExclusionSet struct {
	names *strset.Set
}

// NewExclusionSet returns a set holding names.
func NewExclusionSet(names ...string) *ExclusionSet {
	return &ExclusionSet{names: strset.New(names...)}
}

// Add adds names to the set.
func (s *ExclusionSet) Add(names ...string) {
	s.names.Add(names...)
}

// Merge adds every name of other.
func (s *ExclusionSet) Merge(other *ExclusionSet) {
	if other.IsEmpty() {
		return
	}
	s.names.Merge(other.names)
}

// Len returns the number of names.
func (s *ExclusionSet) Len() int {
	if s == nil || s.names == nil {
		return 0
	}
	return s.names.Size()
}

// IsEmpty reports whether the set holds no names. A nil set is empty.
func (s *ExclusionSet) IsEmpty() bool { return s.Len() == 0 }

// Has reports whether name is in the set.
func (s *ExclusionSet) Has(name string) bool {
	return !s.IsEmpty() && s.names.Has(name)
}

// List returns the names sorted.
func (s *ExclusionSet) List() []string {
	if s.IsEmpty() {
		return nil
	}
	out := s.names.List()
	sort.Strings(out)
	return out
}

// Matcher returns a function reporting whether a slash-separated relative path
// is included by the set. Names with glob meta characters match with path.Match,
// all others match exactly.
func (s *ExclusionSet) Matcher() func(rel string) bool {
	var globs []string
	for _, name := range s.List() {
		if strings.ContainsAny(name, "*?[") {
			globs = append(globs, name)
		}
	}
	return func(rel string) bool {
		if s.Has(rel) {
			return true
		}
		for _, g := range globs {
			if ok, _ := path.Match(g, rel); ok {
				return true
			}
		}
		return false
	}
}

// DeriveName maps a compiled entry name to its generated source name by
// replacing the compiled suffix at the end of the name.
func DeriveName(entry, compiledSuffix, generatedSuffix string) (string, bool) {
	stem, ok := strings.CutSuffix(entry, compiledSuffix)
	if !ok || compiledSuffix == "" {
		return "", false
	}
	return stem + generatedSuffix, true
}

// FindExclusions collects the exclusion set of artifacts. Only artifacts whose
// file name ends with opts.ArchiveSuffix are opened.
func FindExclusions(artifacts []core.Artifact, opts Options) (*ExclusionSet, error) {
	set := NewExclusionSet()
	for _, a := range artifacts {
		if !archive.IsCompiledArchive(a, opts.ArchiveSuffix) {
			continue
		}
		entries, err := archive.Entries(a, archive.HasSuffix(opts.CompiledSuffix))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if name, ok := DeriveName(e, opts.CompiledSuffix, opts.GeneratedSuffix); ok {
				set.Add(name)
			}
		}
	}
	return set, nil
}
