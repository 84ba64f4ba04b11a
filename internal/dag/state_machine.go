package dag

import (
	"errors"
	"fmt"
	"slices"
)

var allowedTransitions = map[TaskState][]TaskState{
	TaskPending: {TaskRunning, TaskSkipped},
	TaskRunning: {TaskCompleted, TaskFailed},
}

// IsTerminal reports whether a task in state s has finished.
func IsTerminal(s TaskState) bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskSkipped
}

// IsSuccessful reports whether s satisfies the tasks that depend on it.
func IsSuccessful(s TaskState) bool {
	return s == TaskCompleted
}

// Transition moves taskName from one state to another.
//
// from must be the task's current state; state is left untouched unless the
// transition is allowed.
func Transition(state ExecutionState, taskName string, from, to TaskState) error {
	cur, ok := state[taskName]
	switch {
	case !ok:
		return fmt.Errorf("task %q has no state", taskName)
	case cur != from:
		return fmt.Errorf("task %q is %s, expected %s", taskName, cur, from)
	case !slices.Contains(allowedTransitions[from], to):
		return fmt.Errorf("task %q cannot move from %s to %s", taskName, from, to)
	}
	state[taskName] = to
	return nil
}

// FailAndPropagate marks taskName FAILED and every PENDING task reachable
// from it SKIPPED. It returns the skipped tasks, visited lowest canonical
// index first. Finding a reachable task RUNNING is an invariant violation.
func FailAndPropagate(g *TaskGraph, state ExecutionState, taskName string) ([]string, error) {
	if g == nil {
		return nil, errors.New("nil graph")
	}
	node, ok := g.nodesByName[taskName]
	if !ok {
		return nil, fmt.Errorf("unknown task %q", taskName)
	}
	switch cur := state[taskName]; cur {
	case TaskRunning:
		state[taskName] = TaskFailed
	case TaskFailed:
	default:
		return nil, fmt.Errorf("task %q cannot fail from state %s", taskName, cur)
	}

	queued := make([]bool, len(g.nodes))
	queued[node.canonicalIndex] = true
	var frontier []int
	enqueue := func(from int) {
		for _, v := range g.outgoing[from] {
			if !queued[v] {
				queued[v] = true
				frontier = insertSorted(frontier, v)
			}
		}
	}
	enqueue(node.canonicalIndex)

	var skipped []string
	for len(frontier) > 0 {
		u := frontier[0]
		frontier = frontier[1:]
		name := g.nodes[u].Name
		switch st, ok := state[name]; {
		case !ok:
			return skipped, fmt.Errorf("task %q has no state", name)
		case st == TaskPending:
			state[name] = TaskSkipped
			skipped = append(skipped, name)
		case st == TaskRunning:
			return skipped, fmt.Errorf("invariant violation: downstream task %q is RUNNING while %q fails", name, taskName)
		}
		enqueue(u)
	}
	return skipped, nil
}
