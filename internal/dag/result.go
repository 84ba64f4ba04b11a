package dag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// TaskError is the failure of a single task.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.Task, e.Err) }

func (e *TaskError) Unwrap() error { return e.Err }

// GraphResult is the deterministic summary of a graph execution attempt.
type GraphResult struct {
	GraphHash GraphHash

	// FinalState is the terminal state of each task by name.
	FinalState ExecutionState

	// ExecutionOrder lists the tasks in the order they were started.
	ExecutionOrder []string

	// Errors holds the error of every FAILED task.
	Errors map[string]error
}

// Failed returns the names of the failed tasks in execution order.
func (r *GraphResult) Failed() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, name := range r.ExecutionOrder {
		if _, ok := r.Errors[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Err joins the task failures in execution order. It returns nil when every
// task completed.
func (r *GraphResult) Err() error {
	var errs *multierror.Error
	for _, name := range r.Failed() {
		errs = multierror.Append(errs, &TaskError{Task: name, Err: r.Errors[name]})
	}
	return errs.ErrorOrNil()
}
