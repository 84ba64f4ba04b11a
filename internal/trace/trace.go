// Package trace records what a pipeline run did as a canonical,
// timestamp-free document.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExecutionTrace is the canonical record of one pipeline run.
//
// It holds logical facts only: no timestamps, durations, error strings or host
// specific values. Two runs over the same inputs produce the same bytes.
type ExecutionTrace struct {
	GraphHash string  `json:"graphHash"`
	Events    []Event `json:"events"`
}

// EventKind discriminates events. The string values are part of the canonical
// bytes; do not rename.
type EventKind string

const (
	EventTaskExecuted  EventKind = "TaskExecuted"
	EventTaskFailed    EventKind = "TaskFailed"
	EventTaskSkipped   EventKind = "TaskSkipped"
	EventSchemasStaged EventKind = "SchemasStaged"
	EventOutputsPruned EventKind = "OutputsPruned"
)

// Reason codes.
const (
	ReasonUpstreamFailed = "UpstreamFailed"
	ReasonTaskError      = "TaskError"
)

// Event is a single logical fact about a task.
type Event struct {
	Kind EventKind `json:"kind"`

	// TaskID is the task the event refers to.
	TaskID string `json:"taskId"`

	// Reason is a stable reason code, never an error message.
	Reason string `json:"reason,omitempty"`

	// CauseTaskID is the failed upstream task of a TaskSkipped event.
	CauseTaskID string `json:"causeTaskId,omitempty"`

	// Paths are slash-separated paths relative to the project directory.
	Paths []string `json:"paths,omitempty"`
}

// Validate checks basic invariants and returns a descriptive error.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == "" {
			return fmt.Errorf("events[%d].taskId is required for kind %q", i, e.Kind)
		}
		if e.Kind == EventTaskSkipped && e.CauseTaskID == "" {
			return fmt.Errorf("events[%d].causeTaskId is required for kind %q", i, e.Kind)
		}
		for j, p := range e.Paths {
			if p == "" {
				return fmt.Errorf("events[%d].paths[%d] is empty", i, j)
			}
		}
	}
	return nil
}

// Canonicalize sorts paths within each event and orders events by
// (taskId, kind, reason, causeTaskId, paths). Empty path lists become nil.
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		if len(t.Events[i].Paths) == 0 {
			t.Events[i].Paths = nil
			continue
		}
		paths := append([]string(nil), t.Events[i].Paths...)
		sort.Strings(paths)
		t.Events[i].Paths = paths
	}

	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		if a.CauseTaskID != b.CauseTaskID {
			return a.CauseTaskID < b.CauseTaskID
		}
		return strings.Join(a.Paths, "\x00") < strings.Join(b.Paths, "\x00")
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventSchemasStaged:
		return 10
	case EventOutputsPruned:
		return 20
	case EventTaskExecuted:
		return 30
	case EventTaskFailed:
		return 40
	case EventTaskSkipped:
		return 50
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace. The
// receiver is not modified.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	cp := ExecutionTrace{GraphHash: t.GraphHash, Events: make([]Event, len(t.Events))}
	copy(cp.Events, t.Events)
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}

// Hash returns the sha256 hex digest of the canonical JSON bytes.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// WriteFile atomically replaces path with the canonical JSON encoding and a
// trailing newline.
func (t ExecutionTrace) WriteFile(path string) error {
	b, err := t.CanonicalJSON()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing trace: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing trace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
