// Package config loads the project manifest: source sets, dependency scopes
// and the resolved dependency artifacts of each scope.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the manifest file looked up in the project directory.
const DefaultFileName = "schemadeps.yaml"

// Manifest is the project description consumed by the pipeline.
type Manifest struct {
	BuildDir           string              `yaml:"buildDir"`
	Marker             string              `yaml:"marker"`
	SchemaExtension    string              `yaml:"schemaExtension"`
	CompiledExtension  string              `yaml:"compiledExtension"`
	GeneratedExtension string              `yaml:"generatedExtension"`
	ArchiveSuffix      string              `yaml:"archiveSuffix"`
	Generator          Generator           `yaml:"generator"`
	SourceSets         []SourceSet         `yaml:"sourceSets"`
	Scopes             []Scope             `yaml:"scopes"`
	// Dependencies maps scope names to artifact paths or glob patterns. They
	// are kept as declared; core.ResolveArtifacts expands them against the
	// project dir.
	Dependencies       map[string][]string `yaml:"dependencies"`

	// ProjectDir is the absolute directory relative paths resolve against.
	ProjectDir string `yaml:"-"`
}

// Generator configures the external code generator command.
type Generator struct {
	Command []string          `yaml:"command"`
	Env     map[string]string `yaml:"env"`
	Clean   bool              `yaml:"clean"`
}

// SourceSet is a compilation unit with its own schema, staging and output dirs.
type SourceSet struct {
	Name       string   `yaml:"name"`
	SchemaDirs []string `yaml:"schemaDirs"`
	StagingDir string   `yaml:"stagingDir"`
	OutputDirs []string `yaml:"outputDirs"`
}

// Scope is a declared base dependency scope.
type Scope struct {
	Name    string   `yaml:"name"`
	Extends []string `yaml:"extends"`
}

// Error is an unusable manifest.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid manifest: %v", e.Err)
	}
	return fmt.Sprintf("invalid manifest %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads the manifest at path, applies defaults, resolves relative paths
// against projectDir and validates the result. Unknown fields are rejected.
// A missing file at path yields the default manifest only when allowMissing
// is set.
func Load(path, projectDir string, allowMissing bool) (*Manifest, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && allowMissing:
		data = nil
	default:
		return nil, &Error{Path: path, Err: err}
	}

	m, err := Parse(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if err := m.Finalize(projectDir); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return m, nil
}

// Parse decodes a manifest document. Empty input yields an empty manifest.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

// Finalize applies defaults, resolves paths against projectDir and validates.
func (m *Manifest) Finalize(projectDir string) error {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return fmt.Errorf("resolving project dir: %w", err)
	}
	m.ProjectDir = abs
	m.ApplyDefaults()
	m.resolvePaths()
	return m.Validate()
}

// ApplyDefaults fills every unset field with its default.
func (m *Manifest) ApplyDefaults() {
	setDefault(&m.BuildDir, "build")
	setDefault(&m.Marker, "avro")
	setDefault(&m.SchemaExtension, ".avsc")
	setDefault(&m.CompiledExtension, ".class")
	setDefault(&m.GeneratedExtension, ".java")
	setDefault(&m.ArchiveSuffix, "jar")

	if len(m.SourceSets) == 0 {
		m.SourceSets = []SourceSet{{Name: "main"}, {Name: "test"}}
	}
	for i := range m.SourceSets {
		ss := &m.SourceSets[i]
		if len(ss.SchemaDirs) == 0 {
			ss.SchemaDirs = []string{filepath.Join("src", ss.Name, m.Marker)}
		}
		setDefault(&ss.StagingDir, filepath.Join(m.BuildDir, fmt.Sprintf("external-%s-%s", ss.Name, m.Marker)))
		if len(ss.OutputDirs) == 0 {
			ss.OutputDirs = []string{filepath.Join(m.BuildDir, fmt.Sprintf("generated-%s-%s-java", ss.Name, m.Marker))}
		}
	}

	if len(m.Scopes) == 0 {
		m.Scopes = []Scope{
			{Name: "api"},
			{Name: "implementation", Extends: []string{"api"}},
			{Name: "testImplementation", Extends: []string{"implementation"}},
		}
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func (m *Manifest) resolvePaths() {
	m.BuildDir = m.Resolve(m.BuildDir)
	for i := range m.SourceSets {
		ss := &m.SourceSets[i]
		ss.SchemaDirs = m.resolveAll(ss.SchemaDirs)
		ss.StagingDir = m.Resolve(ss.StagingDir)
		ss.OutputDirs = m.resolveAll(ss.OutputDirs)
	}
}

// Resolve returns p as a clean absolute path, joined onto the project dir
// when relative. An empty path stays empty.
func (m *Manifest) Resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.ProjectDir, p)
}

func (m *Manifest) resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = m.Resolve(p)
	}
	return out
}

// Rel returns p relative to the project dir with forward slashes, or p itself
// when it lies outside the project.
func (m *Manifest) Rel(p string) string {
	rel, err := filepath.Rel(m.ProjectDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// Validate reports every problem of the manifest at once.
func (m *Manifest) Validate() error {
	var errs *multierror.Error
	add := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	for field, value := range map[string]string{
		"marker":             m.Marker,
		"schemaExtension":    m.SchemaExtension,
		"compiledExtension":  m.CompiledExtension,
		"generatedExtension": m.GeneratedExtension,
		"archiveSuffix":      m.ArchiveSuffix,
	} {
		if value == "" {
			add("%s must not be empty", field)
		}
	}
	if m.CompiledExtension != "" && m.CompiledExtension == m.GeneratedExtension {
		add("compiledExtension and generatedExtension must differ")
	}

	seenSets := map[string]bool{}
	stagingOwner := map[string]string{}
	for i, ss := range m.SourceSets {
		switch {
		case ss.Name == "":
			add("sourceSets[%d]: name is required", i)
		case seenSets[ss.Name]:
			add("sourceSets[%d]: duplicate source set %q", i, ss.Name)
		}
		seenSets[ss.Name] = true

		if owner, ok := stagingOwner[ss.StagingDir]; ok {
			add("source set %q: staging dir %s already used by %q", ss.Name, ss.StagingDir, owner)
		}
		stagingOwner[ss.StagingDir] = ss.Name
	}

	// Output dirs are cleaned and pruned while other source sets run, so each
	// one belongs to exactly one source set.
	outputOwner := map[string]string{}
	for _, ss := range m.SourceSets {
		for _, out := range ss.OutputDirs {
			switch owner, ok := stagingOwner[out]; {
			case ok && owner == ss.Name:
				add("source set %q: staging dir %s is also an output dir", ss.Name, out)
			case ok:
				add("source set %q: output dir %s is the staging dir of %q", ss.Name, out, owner)
			}
			if owner, ok := outputOwner[out]; ok {
				add("source set %q: output dir %s already used by %q", ss.Name, out, owner)
			}
			outputOwner[out] = ss.Name
			if out == m.ProjectDir {
				add("source set %q: output dir must not be the project dir", ss.Name)
			}
		}
	}

	seenScopes := map[string]bool{}
	for i, sc := range m.Scopes {
		switch {
		case sc.Name == "":
			add("scopes[%d]: name is required", i)
		case seenScopes[sc.Name]:
			add("scopes[%d]: duplicate scope %q", i, sc.Name)
		}
		seenScopes[sc.Name] = true
	}
	for _, sc := range m.Scopes {
		for _, parent := range sc.Extends {
			switch {
			case parent == sc.Name:
				add("scope %q extends itself", sc.Name)
			case !seenScopes[parent]:
				add("scope %q extends unknown scope %q", sc.Name, parent)
			}
		}
	}

	for _, name := range m.DependencyScopes() {
		for j, p := range m.Dependencies[name] {
			if p == "" {
				add("dependencies[%s][%d]: empty path", name, j)
			}
		}
	}
	for k := range m.Generator.Env {
		if k == "" {
			add("generator.env: empty variable name")
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		// Map iteration above is unordered; keep messages stable.
		sort.Slice(errs.Errors, func(i, j int) bool { return errs.Errors[i].Error() < errs.Errors[j].Error() })
		return errs
	}
	return nil
}

// RequireGenerator reports an error when no generator command is configured.
func (m *Manifest) RequireGenerator() error {
	if len(m.Generator.Command) == 0 {
		return &Error{Err: errors.New("generator.command is required to run the pipeline")}
	}
	return nil
}

// DependencyScopes returns the scope names with declared dependencies, sorted.
func (m *Manifest) DependencyScopes() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectSourceSets returns the named source sets in manifest order. An empty
// selection returns all of them. The manifest is not modified: unselected
// source sets still take part in scope inheritance.
func (m *Manifest) SelectSourceSets(names []string) ([]SourceSet, error) {
	if len(names) == 0 {
		return append([]SourceSet(nil), m.SourceSets...), nil
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var kept []SourceSet
	for _, ss := range m.SourceSets {
		if want[ss.Name] {
			kept = append(kept, ss)
			delete(want, ss.Name)
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, &Error{Err: fmt.Errorf("unknown source sets: %v", unknown)}
	}
	return kept, nil
}
