package pipeline

import (
	"gopkg.in/yaml.v3"
)

// Plan is a static description of a configured build.
type Plan struct {
	GraphHash  string          `yaml:"graphHash"`
	Scopes     []PlanScope     `yaml:"scopes"`
	SourceSets []PlanSourceSet `yaml:"sourceSets"`
	Tasks      []PlanTask      `yaml:"tasks"`
}

// PlanScope describes one scope and its direct inheritance.
type PlanScope struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Extends   []string `yaml:"extends,omitempty"`
	Artifacts []string `yaml:"artifacts,omitempty"`
}

// PlanSourceSet describes the wiring of one source set.
type PlanSourceSet struct {
	Name        string   `yaml:"name"`
	Companions  []string `yaml:"companions,omitempty"`
	Resources   []string `yaml:"resources,omitempty"`
	StagingDir  string   `yaml:"stagingDir"`
	SourceRoots []string `yaml:"sourceRoots"`
	OutputDirs  []string `yaml:"outputDirs"`
}

// PlanTask is a task in topological order with its direct dependencies.
type PlanTask struct {
	Name      string   `yaml:"name"`
	Group     string   `yaml:"group"`
	DependsOn []string `yaml:"dependsOn,omitempty"`
}

// Plan describes the build. Paths are relative to the project dir.
func (b *Build) Plan() Plan {
	m := b.Manifest
	rel := func(paths []string) []string {
		var out []string
		for _, p := range paths {
			out = append(out, m.Rel(p))
		}
		return out
	}

	p := Plan{GraphHash: b.Graph.Hash().String()}
	for _, key := range b.Registry.Keys() {
		s, _ := b.Registry.Lookup(key)
		ps := PlanScope{Name: key.Name, Kind: key.Kind.String()}
		for _, e := range s.Extends {
			ps.Extends = append(ps.Extends, e.Name)
		}
		for _, a := range s.Artifacts {
			ps.Artifacts = append(ps.Artifacts, m.Rel(a.Path))
		}
		p.Scopes = append(p.Scopes, ps)
	}

	for _, c := range b.Configurators {
		ps := PlanSourceSet{
			Name:        c.SourceSet.Name,
			Resources:   rel(c.Resources()),
			StagingDir:  m.Rel(c.SourceSet.StagingDir),
			SourceRoots: rel(c.generator.SourceRoots()),
			OutputDirs:  rel(c.generator.OutputDirs()),
		}
		for _, k := range c.Companions() {
			ps.Companions = append(ps.Companions, k.Name)
		}
		p.SourceSets = append(p.SourceSets, ps)
	}

	for _, name := range b.Graph.TopologicalOrder() {
		node, _ := b.Graph.Node(name)
		task := PlanTask{Name: name, Group: node.Task.Group}
		if deps := b.Graph.Dependencies(name); len(deps) > 0 {
			task.DependsOn = deps
		}
		p.Tasks = append(p.Tasks, task)
	}
	return p
}

// YAML renders the plan.
func (p Plan) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}
