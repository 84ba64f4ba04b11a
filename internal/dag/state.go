package dag

// TaskState is the runtime execution state of a task.
//
// It is kept apart from TaskGraph, which is immutable.
type TaskState string

const (
	TaskPending   TaskState = "PENDING"
	TaskRunning   TaskState = "RUNNING"
	TaskCompleted TaskState = "COMPLETED"
	TaskFailed    TaskState = "FAILED"
	TaskSkipped   TaskState = "SKIPPED"
)

// ExecutionState maps task name to its current TaskState.
type ExecutionState map[string]TaskState

// NewExecutionState returns a state with every task of g PENDING.
func NewExecutionState(g *TaskGraph) ExecutionState {
	state := make(ExecutionState, len(g.nodes))
	for _, n := range g.nodes {
		state[n.Name] = TaskPending
	}
	return state
}

// Count returns the number of tasks in state s.
func (st ExecutionState) Count(s TaskState) int {
	n := 0
	for _, v := range st {
		if v == s {
			n++
		}
	}
	return n
}
