// Package dag is the explicit task graph and scheduler of the schema pipeline.
//
// It is split into:
//   - Immutable graph definition (TaskGraph): tasks, ordering edges and a stable GraphHash
//   - Mutable execution state (ExecutionState): per-task runtime status
//
// The graph identity (GraphHash) is computed from task definitions and the
// canonicalized edge structure, so it does not depend on insertion order.
package dag
