// Package pipeline applies the schema dependency conventions to a project:
// it creates a companion scope for every relevant dependency scope, links the
// companions along the regular scope inheritance and defines, per source set,
// the extract -> generate -> prune task chain.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"schemadeps/internal/archive"
	"schemadeps/internal/config"
	"schemadeps/internal/core"
	"schemadeps/internal/dag"
	"schemadeps/internal/generator"
	"schemadeps/internal/metrics"
	"schemadeps/internal/naming"
	"schemadeps/internal/prune"
	"schemadeps/internal/scope"
	"schemadeps/internal/trace"
)

// GeneratorFactory creates the code generator of a source set.
type GeneratorFactory func(m *config.Manifest, ss config.SourceSet, logger *slog.Logger) generator.Generator

// CommandGenerator runs the manifest's generator command for a source set.
func CommandGenerator(m *config.Manifest, ss config.SourceSet, logger *slog.Logger) generator.Generator {
	return generator.NewCommand(ss.Name+"Generator", ss.OutputDirs, generator.Options{
		Command: m.Generator.Command,
		Env:     m.Generator.Env,
		Clean:   m.Generator.Clean,
		WorkDir: m.ProjectDir,
	}).WithLogger(logger)
}

// Plugin configures a project from its manifest.
type Plugin struct {
	manifest     *config.Manifest
	registry     *scope.Registry
	newGenerator GeneratorFactory
	log          *slog.Logger
	metrics      *metrics.Metrics
	sink         trace.Sink
	selected     map[string]bool
}

// NewPlugin returns a plugin for a finalized manifest.
func NewPlugin(m *config.Manifest) *Plugin {
	log := slog.Default()
	return &Plugin{
		manifest:     m,
		registry:     scope.NewRegistry().WithLogger(log),
		newGenerator: CommandGenerator,
		log:          log,
		sink:         trace.NopSink{},
	}
}

// WithLogger sets the logger used by the plugin and its components.
func (p *Plugin) WithLogger(logger *slog.Logger) *Plugin {
	p.log = logger
	p.registry.WithLogger(logger)
	return p
}

// WithGenerators replaces the generator factory.
func (p *Plugin) WithGenerators(f GeneratorFactory) *Plugin {
	p.newGenerator = f
	return p
}

// WithMetrics counts staged schemas, exclusions and pruned files.
func (p *Plugin) WithMetrics(m *metrics.Metrics) *Plugin {
	p.metrics = m
	return p
}

// WithTrace records staged and pruned paths into sink.
func (p *Plugin) WithTrace(sink trace.Sink) *Plugin {
	p.sink = sink
	return p
}

// Only restricts task creation to the given source sets. Every source set
// still gets its companion scopes.
func (p *Plugin) Only(sourceSets []config.SourceSet) *Plugin {
	p.selected = map[string]bool{}
	for _, ss := range sourceSets {
		p.selected[ss.Name] = true
	}
	return p
}

// Build is a configured project: the scope registry, the per-source-set
// configurators and the task graph.
type Build struct {
	Manifest      *config.Manifest
	Registry      *scope.Registry
	Configurators []*Configurator
	Graph         *dag.TaskGraph

	// Companions maps every base scope that received a companion to it.
	Companions map[scope.Key]scope.Key
}

// Apply declares the manifest's scopes, configures every source set, links
// the companions once over the complete mapping and builds the task graph.
func (p *Plugin) Apply() (*Build, error) {
	m := p.manifest
	for _, sc := range m.Scopes {
		if _, err := p.registry.AddBase(sc.Name); err != nil {
			return nil, &config.Error{Err: err}
		}
	}
	for _, sc := range m.Scopes {
		for _, parent := range sc.Extends {
			if err := p.registry.Extend(scope.BaseKey(sc.Name), scope.BaseKey(parent)); err != nil {
				return nil, &config.Error{Err: err}
			}
		}
	}

	b := &Build{Manifest: m, Registry: p.registry, Companions: map[scope.Key]scope.Key{}}
	var (
		tasks []dag.Task
		edges []dag.Edge
	)
	for _, ss := range m.SourceSets {
		c := newConfigurator(p, ss)
		pairs, err := c.configure()
		if err != nil {
			return nil, err
		}
		for base, companion := range pairs {
			b.Companions[base] = companion
		}
		if p.selected != nil && !p.selected[ss.Name] {
			continue
		}
		b.Configurators = append(b.Configurators, c)
		t, e := c.tasks()
		tasks = append(tasks, t...)
		edges = append(edges, e...)
	}

	// Companions exist now, so dependencies may target them directly.
	if err := p.declareDependencies(); err != nil {
		return nil, err
	}
	if err := p.registry.Propagate(b.Companions); err != nil {
		return nil, err
	}

	g, err := dag.NewTaskGraph(tasks, edges)
	if err != nil {
		return nil, fmt.Errorf("building task graph: %w", err)
	}
	b.Graph = g
	p.log.Debug("Configured project", "source_sets", len(b.Configurators), "tasks", g.Len(), "graph_hash", g.Hash().String())
	return b, nil
}

func (p *Plugin) declareDependencies() error {
	for _, name := range p.manifest.DependencyScopes() {
		key, ok := p.registry.Find(name)
		if !ok {
			return &config.Error{Err: fmt.Errorf("dependencies: %w %q", scope.ErrUnknownScope, name)}
		}
		artifacts, err := core.ResolveArtifacts(p.manifest.ProjectDir, p.manifest.Dependencies[name])
		if err != nil {
			return &config.Error{Err: fmt.Errorf("dependencies[%s]: %w", name, err)}
		}
		if err := p.registry.Declare(key, artifacts...); err != nil {
			return &config.Error{Err: err}
		}
	}
	return nil
}

// Configurator returns the configurator of a selected source set.
func (b *Build) Configurator(sourceSet string) (*Configurator, bool) {
	for _, c := range b.Configurators {
		if c.SourceSet.Name == sourceSet {
			return c, true
		}
	}
	return nil, false
}

// Execute runs the task graph. A parallelism of one or less runs the tasks
// serially. Task failures are reported in the result, the returned error is
// reserved for cancellation and executor faults.
func (b *Build) Execute(ctx context.Context, parallelism int, obs dag.Observer) (*dag.GraphResult, error) {
	exec, err := dag.NewExecutor(b.Graph)
	if err != nil {
		return nil, err
	}
	if obs != nil {
		exec.WithObserver(obs)
	}
	if parallelism <= 1 {
		return exec.RunSerial(ctx)
	}
	return exec.RunParallel(ctx, parallelism)
}

// Trace failure reasons.
const (
	ReasonArchiveReadFailed = "ArchiveReadFailed"
	ReasonNamingViolation   = "NamingConventionViolated"
	ReasonDeleteFailed      = "DeleteFailed"
	ReasonGeneratorFailed   = "GeneratorFailed"
	ReasonTaskPanicked      = "TaskPanicked"
)

// Classify maps a task error to its trace reason.
func Classify(err error) string {
	var (
		archiveErr *archive.Error
		namingErr  *naming.Error
		deleteErr  *prune.DeleteError
		exitErr    *generator.ExitError
		panicErr   *dag.PanicError
	)
	switch {
	case errors.As(err, &archiveErr):
		return ReasonArchiveReadFailed
	case errors.As(err, &namingErr):
		return ReasonNamingViolation
	case errors.As(err, &deleteErr):
		return ReasonDeleteFailed
	case errors.As(err, &exitErr):
		return ReasonGeneratorFailed
	case errors.As(err, &panicErr):
		return ReasonTaskPanicked
	default:
		return trace.ReasonTaskError
	}
}
