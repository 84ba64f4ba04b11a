package runlog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Recorder writes the run.json and failure.json records of runs.
type Recorder struct {
	Store *Store
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// StartRun persists run with status running.
func (r *Recorder) StartRun(run Run) error {
	if r == nil || r.Store == nil {
		return errors.New("store is required")
	}
	if run.StartTime.IsZero() {
		run.StartTime = time.Now().UTC()
	}
	if run.SourceSets == nil {
		run.SourceSets = []string{}
	}
	run.Status = RunStatusRunning
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	return r.Store.SaveRun(run)
}

// FinishRun updates the status of a started run.
func (r *Recorder) FinishRun(runID string, status RunStatus) error {
	if r == nil || r.Store == nil {
		return errors.New("store is required")
	}
	run, err := r.Store.LoadRun(runID)
	if err != nil {
		return err
	}
	run.Status = status
	return r.Store.SaveRun(run)
}

// RecordFailure classifies err and persists it as the run's failure.
func (r *Recorder) RecordFailure(runID string, err error) error {
	if r == nil || r.Store == nil {
		return errors.New("store is required")
	}
	f, ferr := failureFromError(err)
	if ferr != nil {
		return ferr
	}
	return r.Store.SaveFailure(runID, f)
}
