// Package metrics counts pipeline work on a private Prometheus registry and
// writes it in the node-exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters. A nil *Metrics discards all updates.
type Metrics struct {
	registry *prometheus.Registry

	schemasStaged     *prometheus.CounterVec
	schemaDuplicates  *prometheus.CounterVec
	exclusionsFound   *prometheus.CounterVec
	filesPruned       *prometheus.CounterVec
	taskOutcomesTotal *prometheus.CounterVec
}

// New returns counters registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		schemasStaged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemadeps_schemas_staged_total",
				Help: "Schema files copied into staging directories",
			},
			[]string{"source_set"},
		),
		schemaDuplicates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemadeps_schema_duplicates_total",
				Help: "Schema entries ignored because an earlier artifact provided the same name",
			},
			[]string{"source_set"},
		),
		exclusionsFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemadeps_exclusions_total",
				Help: "Generated file names provided in compiled form by dependencies",
			},
			[]string{"source_set"},
		),
		filesPruned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemadeps_files_pruned_total",
				Help: "Generated files deleted because a dependency provides them",
			},
			[]string{"source_set"},
		),
		taskOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schemadeps_task_outcomes_total",
				Help: "Finished tasks by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.schemasStaged, m.schemaDuplicates, m.exclusionsFound, m.filesPruned, m.taskOutcomesTotal)
	return m
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SchemasStaged(sourceSet string, staged, duplicates int) {
	if m == nil {
		return
	}
	m.schemasStaged.WithLabelValues(sourceSet).Add(float64(staged))
	m.schemaDuplicates.WithLabelValues(sourceSet).Add(float64(duplicates))
}

func (m *Metrics) ExclusionsFound(sourceSet string, n int) {
	if m == nil {
		return
	}
	m.exclusionsFound.WithLabelValues(sourceSet).Add(float64(n))
}

func (m *Metrics) FilesPruned(sourceSet string, n int) {
	if m == nil {
		return
	}
	m.filesPruned.WithLabelValues(sourceSet).Add(float64(n))
}

// The task methods make Metrics a scheduler observer.

func (m *Metrics) TaskStarted(string) {}

func (m *Metrics) TaskFinished(_ string, err error) {
	if m == nil {
		return
	}
	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	m.taskOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TaskSkipped(string, string) {
	if m == nil {
		return
	}
	m.taskOutcomesTotal.WithLabelValues("skipped").Inc()
}

// WriteFile writes all metrics to path in the textfile collector format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
