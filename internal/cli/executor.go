package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"schemadeps/internal/config"
	"schemadeps/internal/dag"
	"schemadeps/internal/logging"
	"schemadeps/internal/metrics"
	"schemadeps/internal/naming"
	"schemadeps/internal/pipeline"
	"schemadeps/internal/runlog"
	"schemadeps/internal/trace"
)

type CLIResult struct {
	ExitCode    int
	RunID       string
	GraphResult *dag.GraphResult
}

// Execute maps a canonical Invocation to a configured build and runs the
// requested command.
//
// Responsibilities:
//   - Load and validate the project manifest.
//   - Apply the pipeline and either print its plan or execute its task graph.
//   - Write the trace, metrics and run records after execution, even on
//     failure or panic.
//   - Translate outcomes to semantic exit codes.
func Execute(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError

	logger, closer, err := logging.NewLogger(&inv.Logging, stderr)
	if err != nil {
		res.ExitCode = ExitInvalidInvocation
		return res, fmt.Errorf("configuring logging: %w", err)
	}
	defer closer.Close()

	res.RunID = runlog.NewRunID()
	log := logger.With("run_id", res.RunID)

	m, err := config.Load(inv.ManifestPath, inv.ProjectDir, inv.ManifestOptional)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	selected, err := m.SelectSourceSets(inv.SourceSets)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	if inv.Command == CommandRun {
		if err := m.RequireGenerator(); err != nil {
			res.ExitCode = ExitConfigError
			return res, err
		}
	}

	met := metrics.New()
	recorder := trace.NewRecorder()
	recorder.Classify = pipeline.Classify

	build, err := pipeline.NewPlugin(m).
		WithLogger(log).
		WithMetrics(met).
		WithTrace(recorder).
		Only(selected).
		Apply()
	if err != nil {
		res.ExitCode = applyExitCode(err)
		return res, err
	}

	if inv.Command == CommandPlan {
		out, err := build.Plan().YAML()
		if err != nil {
			return res, err
		}
		if _, err := stdout.Write(out); err != nil {
			return res, err
		}
		res.ExitCode = ExitSuccess
		return res, nil
	}

	graphHash := build.Graph.Hash().String()
	traceWriter, err := newTraceWriter(inv.TracePath, graphHash)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	rec := newRunRecorder(inv, m, log)
	rec.start(runlog.Run{
		RunID:       res.RunID,
		GraphHash:   graphHash,
		SourceSets:  sourceSetNames(selected),
		Parallelism: inv.Parallelism,
	})

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			res.GraphResult = nil
			execErr = fmt.Errorf("panic: %v", r)
			rec.fail(res.RunID, &runlog.SystemFailureError{Code: "Panic", Message: execErr.Error(), Cause: execErr})
		}
		// Always finalize the trace and metrics files.
		if err := traceWriter.Finalize(recorder); err != nil && execErr == nil {
			res.ExitCode = ExitInternalError
			execErr = err
		}
		if inv.MetricsPath != "" {
			if err := met.WriteFile(inv.MetricsPath); err != nil && execErr == nil {
				res.ExitCode = ExitInternalError
				execErr = err
			}
		}
		rec.finish(res.RunID, res.ExitCode)
	}()

	log.Info("Running schema dependency tasks", "tasks", build.Graph.Len(), "parallelism", inv.Parallelism, "graph_hash", graphHash)
	gr, err := build.Execute(ctx, inv.Parallelism, dag.Observers{recorder, met, taskLogger{log: log}})
	res.GraphResult = gr
	if err != nil {
		rec.fail(res.RunID, &runlog.SystemFailureError{Code: "EngineError", Message: err.Error(), Cause: err})
		res.ExitCode = ExitInternalError
		return res, err
	}
	res.ExitCode = translateGraphResultToExitCode(gr)
	if res.ExitCode == ExitGraphFailure {
		failed := firstFailedTask(gr)
		cause := gr.Errors[failed]
		rec.fail(res.RunID, &runlog.ExecutionFailureError{
			TaskID:  failed,
			Code:    pipeline.Classify(cause),
			Message: cause.Error(),
			Cause:   cause,
		})
		return res, gr.Err()
	}
	log.Info("Schema dependency tasks completed", "tasks", gr.FinalState.Count(dag.TaskCompleted))
	return res, nil
}

// applyExitCode maps a configuration failure of the pipeline to an exit code.
func applyExitCode(err error) int {
	var (
		cfgErr    *config.Error
		namingErr *naming.Error
	)
	if errors.As(err, &cfgErr) || errors.As(err, &namingErr) {
		return ExitConfigError
	}
	return ExitInternalError
}

func sourceSetNames(sets []config.SourceSet) []string {
	names := make([]string, 0, len(sets))
	for _, ss := range sets {
		names = append(names, ss.Name)
	}
	return names
}

func firstFailedTask(gr *dag.GraphResult) string {
	if gr == nil || len(gr.FinalState) == 0 {
		return ""
	}
	names := make([]string, 0, len(gr.FinalState))
	for n := range gr.FinalState {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if gr.FinalState[n] == dag.TaskFailed {
			return n
		}
	}
	return ""
}

func translateGraphResultToExitCode(gr *dag.GraphResult) int {
	if gr == nil {
		return ExitInternalError
	}
	for _, st := range gr.FinalState {
		if st == dag.TaskFailed {
			return ExitGraphFailure
		}
	}
	return ExitSuccess
}

// runRecorder writes run records when the run log is enabled. Failures to
// record are logged and never change the outcome of a run.
type runRecorder struct {
	rec *runlog.Recorder
	log *slog.Logger
}

func newRunRecorder(inv Invocation, m *config.Manifest, log *slog.Logger) *runRecorder {
	r := &runRecorder{log: log}
	if !inv.RunLog {
		return r
	}
	store, err := runlog.NewStore(m.BuildDir)
	if err != nil {
		log.Warn("Run log disabled", "error", err)
		return r
	}
	r.rec = &runlog.Recorder{Store: store}
	return r
}

func (r *runRecorder) start(run runlog.Run) {
	if r.rec == nil {
		return
	}
	if err := r.rec.StartRun(run); err != nil {
		r.log.Warn("Failed to record run", "error", err)
		r.rec = nil
	}
}

func (r *runRecorder) fail(runID string, err error) {
	if r.rec == nil {
		return
	}
	if rerr := r.rec.RecordFailure(runID, err); rerr != nil {
		r.log.Warn("Failed to record run failure", "error", rerr)
	}
}

func (r *runRecorder) finish(runID string, exitCode int) {
	if r.rec == nil {
		return
	}
	status := runlog.RunStatusSucceeded
	if exitCode != ExitSuccess {
		status = runlog.RunStatusFailed
	}
	if err := r.rec.FinishRun(runID, status); err != nil {
		r.log.Warn("Failed to record run status", "error", err)
	}
}

type traceFileWriter struct {
	enabled   bool
	path      string
	graphHash string
}

func newTraceWriter(path, graphHash string) (*traceFileWriter, error) {
	if path == "" {
		return &traceFileWriter{enabled: false}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	// Create an empty trace file eagerly so the destination is reserved and
	// so that even a panic results in a valid artifact.
	w := &traceFileWriter{enabled: true, path: path, graphHash: graphHash}
	return w, w.write(trace.ExecutionTrace{GraphHash: graphHash})
}

func (w *traceFileWriter) Finalize(rec *trace.Recorder) error {
	if w == nil || !w.enabled {
		return nil
	}
	return w.write(rec.Trace(w.graphHash))
}

func (w *traceFileWriter) write(t trace.ExecutionTrace) error {
	return t.WriteFile(w.path)
}
