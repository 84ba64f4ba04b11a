package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"schemadeps/internal/config"
	"schemadeps/internal/core"
	"schemadeps/internal/dag"
	"schemadeps/internal/extract"
	"schemadeps/internal/generator"
	"schemadeps/internal/metrics"
	"schemadeps/internal/naming"
	"schemadeps/internal/prune"
	"schemadeps/internal/scope"
	"schemadeps/internal/trace"
)

// Task name parts, combined per source set with naming.TaskName.
const (
	verbCopy            = "copy"
	verbGenerate        = "generate"
	verbConfigureDelete = "configureDelete"
	verbDelete          = "delete"

	targetExternalResources = "externalAvroResources"
	targetGenerate          = "avroJava"
	targetExternalJava      = "externalJava"
)

// relevantScopeKinds are the scope kinds of a source set that get a companion.
var relevantScopeKinds = []string{"implementation", "api"}

// Configurator wires one source set: it creates the companion scopes, reports
// resource roots and defines the extract, generate and prune tasks.
type Configurator struct {
	SourceSet config.SourceSet

	manifest  *config.Manifest
	registry  *scope.Registry
	generator generator.Generator
	extractor *extract.Extractor
	pruner    *prune.Pruner
	log       *slog.Logger
	metrics   *metrics.Metrics
	sink      trace.Sink

	companions []scope.Key
	resources  []string

	// exclusions is written by the configureDelete task and read by the
	// delete task, which the graph orders after it.
	exclusions *prune.ExclusionSet
}

func newConfigurator(p *Plugin, ss config.SourceSet) *Configurator {
	log := p.log.With("source_set", ss.Name)
	return &Configurator{
		SourceSet: ss,
		manifest:  p.manifest,
		registry:  p.registry,
		generator: p.newGenerator(p.manifest, ss, log),
		extractor: extract.New(p.manifest.SchemaExtension).WithLogger(log),
		pruner:    prune.New().WithLogger(log),
		log:       log,
		metrics:   p.metrics,
		sink:      p.sink,
	}
}

// TaskName returns the source set's name for a task.
func (c *Configurator) TaskName(verb, target string) string {
	return naming.TaskName(c.SourceSet.Name, verb, target)
}

func (c *Configurator) copyTask() string {
	return c.TaskName(verbCopy, targetExternalResources)
}

func (c *Configurator) generateTask() string {
	return c.TaskName(verbGenerate, targetGenerate)
}

func (c *Configurator) configureDeleteTask() string {
	return c.TaskName(verbConfigureDelete, targetExternalJava)
}

func (c *Configurator) deleteTask() string {
	return c.TaskName(verbDelete, targetExternalJava)
}

// Companions returns the companion scopes of the source set, in relevance order.
func (c *Configurator) Companions() []scope.Key {
	return append([]scope.Key(nil), c.companions...)
}

// Resources returns the directories shipped as resources of the source set.
func (c *Configurator) Resources() []string {
	return append([]string(nil), c.resources...)
}

// Generator returns the source set's code generator.
func (c *Configurator) Generator() generator.Generator { return c.generator }

// configure creates the companion of every relevant scope that exists and
// returns the base -> companion mapping. Scopes the project does not declare
// are skipped.
func (c *Configurator) configure() (map[scope.Key]scope.Key, error) {
	c.registerResources()

	pairs := map[scope.Key]scope.Key{}
	for _, kind := range relevantScopeKinds {
		baseName := naming.ScopeName(c.SourceSet.Name, kind)
		base := scope.BaseKey(baseName)
		if _, ok := c.registry.Lookup(base); !ok {
			continue
		}
		companionName, err := naming.CompanionName(c.SourceSet.Name, c.manifest.Marker, baseName)
		if err != nil {
			return nil, err
		}
		companion, err := c.registry.AddCompanion(base, companionName)
		if err != nil {
			return nil, &config.Error{Err: fmt.Errorf("source set %q: %w", c.SourceSet.Name, err)}
		}
		c.log.Debug("Created companion scope", "scope", companionName, "base", baseName)
		c.companions = append(c.companions, companion)
		pairs[base] = companion
	}

	for _, dir := range c.SourceSet.SchemaDirs {
		c.generator.AddSourceRoot(dir)
	}
	c.generator.AddSourceRoot(c.SourceSet.StagingDir)
	return pairs, nil
}

// registerResources ships the schema directories with the compiled output
// when the source set has an api scope, so other projects can consume them
// as schema dependencies.
func (c *Configurator) registerResources() {
	api := scope.BaseKey(naming.ScopeName(c.SourceSet.Name, "api"))
	if _, ok := c.registry.Lookup(api); !ok {
		return
	}
	c.resources = append(c.resources, c.SourceSet.SchemaDirs...)
}

// artifacts resolves the companion scopes of the source set, including what
// they inherit, into one ordered artifact list.
func (c *Configurator) artifacts() ([]core.Artifact, error) {
	set := core.NewArtifactSet()
	for _, companion := range c.companions {
		resolved, err := c.registry.Resolve(companion)
		if err != nil {
			return nil, err
		}
		set.Add(resolved...)
	}
	return set.List(), nil
}

// tasks returns the four tasks of the source set and their ordering edges.
func (c *Configurator) tasks() ([]dag.Task, []dag.Edge) {
	ss := c.SourceSet
	outputs := c.generator.OutputDirs()
	tasks := []dag.Task{
		{
			Name:    c.copyTask(),
			Group:   ss.Name,
			Outputs: []string{ss.StagingDir},
			Action:  c.copyExternalResources,
		},
		{
			Name:    c.generateTask(),
			Group:   ss.Name,
			Inputs:  c.generator.SourceRoots(),
			Outputs: outputs,
			Action:  c.generator.Generate,
		},
		{
			Name:   c.configureDeleteTask(),
			Group:  ss.Name,
			Action: c.configureDeleteExternal,
		},
		{
			Name:    c.deleteTask(),
			Group:   ss.Name,
			Outputs: outputs,
			Action:  c.deleteExternal,
		},
	}
	edges := []dag.Edge{
		{From: c.copyTask(), To: c.generateTask()},
		{From: c.generateTask(), To: c.deleteTask()},
		{From: c.configureDeleteTask(), To: c.deleteTask()},
	}
	return tasks, edges
}

func (c *Configurator) copyExternalResources(ctx context.Context) error {
	artifacts, err := c.artifacts()
	if err != nil {
		return err
	}
	res, err := c.extractor.Extract(ctx, artifacts, c.SourceSet.StagingDir)
	if err != nil {
		return err
	}
	c.metrics.SchemasStaged(c.SourceSet.Name, len(res.Files), len(res.Duplicates))

	staging := c.manifest.Rel(c.SourceSet.StagingDir)
	paths := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		paths = append(paths, path.Join(staging, f))
	}
	trace.SafeRecord(c.sink, trace.Event{Kind: trace.EventSchemasStaged, TaskID: c.copyTask(), Paths: paths})
	c.log.Info("Staged external schemas", "count", len(res.Files), "duplicates", len(res.Duplicates), "artifacts", len(artifacts))
	return nil
}

func (c *Configurator) configureDeleteExternal(ctx context.Context) error {
	artifacts, err := c.artifacts()
	if err != nil {
		return err
	}
	set, err := prune.FindExclusions(artifacts, prune.Options{
		ArchiveSuffix:   c.manifest.ArchiveSuffix,
		CompiledSuffix:  c.manifest.CompiledExtension,
		GeneratedSuffix: c.manifest.GeneratedExtension,
	})
	if err != nil {
		return err
	}
	c.exclusions = set
	c.metrics.ExclusionsFound(c.SourceSet.Name, set.Len())
	c.log.Debug("Computed exclusions", "count", set.Len())
	return nil
}

func (c *Configurator) deleteExternal(ctx context.Context) error {
	res, err := c.pruner.Prune(ctx, c.generator.OutputDirs(), c.exclusions)
	if res != nil {
		c.metrics.FilesPruned(c.SourceSet.Name, len(res.Deleted))
	}
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(res.Deleted))
	for _, p := range res.Deleted {
		paths = append(paths, c.manifest.Rel(p))
	}
	trace.SafeRecord(c.sink, trace.Event{Kind: trace.EventOutputsPruned, TaskID: c.deleteTask(), Paths: paths})
	if len(paths) > 0 {
		c.log.Info("Deleted generated files provided by dependencies", "count", len(paths))
	}
	return nil
}
