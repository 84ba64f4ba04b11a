package runlog

import (
	"errors"
	"testing"
)

func TestFailureFromError_ClassifiesExecutionFailure(t *testing.T) {
	f, err := failureFromError(&ExecutionFailureError{TaskID: "A", Code: "TaskFailed", Message: "bad"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FailureClass != FailureClassExecution || f.TaskID == nil || *f.TaskID != "A" {
		t.Fatalf("unexpected failure: %#v", f)
	}
}

func TestFailureFromError_ClassifiesSystemFailure(t *testing.T) {
	f, err := failureFromError(&SystemFailureError{Code: "Panic", Message: "boom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FailureClass != FailureClassSystem || f.ErrorCode != "Panic" || f.TaskID != nil {
		t.Fatalf("unexpected failure: %#v", f)
	}
}

func TestFailureFromError_UnknownIsSystem(t *testing.T) {
	f, err := failureFromError(errors.New("disk full"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FailureClass != FailureClassSystem || f.ErrorCode != "UnknownError" || f.ErrorMessage != "disk full" {
		t.Fatalf("unexpected failure: %#v", f)
	}
	if _, err := failureFromError(nil); err == nil {
		t.Fatalf("expected error for nil")
	}
}
