package dag

import "context"

// GraphHash is the deterministic identity of a TaskGraph.
//
// It is computed solely from task definitions and dependency structure and is
// stable across insertion orders of tasks and edges.
type GraphHash string

// TaskDefHash is the deterministic identity of a task definition.
type TaskDefHash string

// Action performs the work of a task. A nil Action completes immediately.
type Action func(ctx context.Context) error

// Task is a named unit of work in the pipeline.
//
// Inputs and Outputs are informational paths; they take part in the task's
// definition hash but are not used for scheduling. Ordering comes from edges only.
type Task struct {
	Name string
	// Group is the source set the task belongs to.
	Group   string
	Inputs  []string
	Outputs []string
	Action  Action
}

// Edge is an ordering relation: To can only run after From completed successfully.
type Edge struct {
	From string
	To   string
}

// TaskNode is an immutable node in the TaskGraph.
type TaskNode struct {
	Name           string
	Task           Task
	DefinitionHash TaskDefHash
	canonicalIndex int
}

// CanonicalIndex returns the node's deterministic position in the graph's canonical ordering.
func (n *TaskNode) CanonicalIndex() int { return n.canonicalIndex }

func (h GraphHash) String() string { return string(h) }

func (h TaskDefHash) String() string { return string(h) }
