package runlog

import (
	"errors"
	"fmt"
)

// ExecutionFailureError is a task failure of a run.
type ExecutionFailureError struct {
	TaskID  string
	Code    string
	Message string
	Cause   error
}

func (e *ExecutionFailureError) Error() string {
	if e == nil {
		return ""
	}
	if e.TaskID != "" && e.Code != "" {
		return fmt.Sprintf("execution failure task=%s (%s): %s", e.TaskID, e.Code, e.Message)
	}
	if e.TaskID != "" {
		return fmt.Sprintf("execution failure task=%s: %s", e.TaskID, e.Message)
	}
	return fmt.Sprintf("execution failure: %s", e.Message)
}

func (e *ExecutionFailureError) Unwrap() error { return e.Cause }

// SystemFailureError is a failure outside any task: cancellation, a panic or
// an executor fault.
type SystemFailureError struct {
	Code    string
	Message string
	Cause   error
}

func (e *SystemFailureError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("system failure (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("system failure: %s", e.Message)
}

func (e *SystemFailureError) Unwrap() error { return e.Cause }

func failureFromError(err error) (Failure, error) {
	if err == nil {
		return Failure{}, errors.New("nil error")
	}

	var ef *ExecutionFailureError
	if errors.As(err, &ef) && ef != nil {
		var taskID *string
		if ef.TaskID != "" {
			id := ef.TaskID
			taskID = &id
		}
		return Failure{
			FailureClass: FailureClassExecution,
			TaskID:       taskID,
			ErrorCode:    nonEmptyOr(ef.Code, "ExecutionFailure"),
			ErrorMessage: nonEmptyOr(ef.Message, ef.Error()),
		}, nil
	}

	var sf *SystemFailureError
	if errors.As(err, &sf) && sf != nil {
		return Failure{
			FailureClass: FailureClassSystem,
			ErrorCode:    nonEmptyOr(sf.Code, "SystemFailure"),
			ErrorMessage: nonEmptyOr(sf.Message, sf.Error()),
		}, nil
	}

	return Failure{
		FailureClass: FailureClassSystem,
		ErrorCode:    "UnknownError",
		ErrorMessage: err.Error(),
	}, nil
}

func nonEmptyOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
