package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph = errors.New("invalid task graph")
	ErrCycleFound   = errors.New("cycle detected")
)

// GraphError reports why tasks and edges do not form a valid graph.
//
// Tasks names the offending tasks. For ErrCycleFound it is a closed path
// whose first and last element are the same task.
type GraphError struct {
	Kind   error
	Reason string
	Tasks  []string
}

func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Tasks) > 0 {
		sep := ", "
		if errors.Is(e.Kind, ErrCycleFound) {
			sep = " -> "
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Tasks, sep))
	}
	return b.String()
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidGraph(reason string, tasks ...string) error {
	return &GraphError{Kind: ErrInvalidGraph, Reason: reason, Tasks: tasks}
}

// PanicError is the failure of a task whose action panicked.
type PanicError struct {
	Task  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}
