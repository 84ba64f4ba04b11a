package dag

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Executor executes a TaskGraph.
//
// A failing task marks its downstream tasks SKIPPED; tasks on independent
// branches keep running. Task failures are reported through GraphResult, not
// as the executor's error, which is reserved for cancellation and invariant
// violations.
type Executor struct {
	Graph *TaskGraph

	observer Observer

	mu     sync.Mutex
	state  ExecutionState
	order  []string
	errs   map[string]error
	broken error
}

// NewExecutor creates an executor with all tasks PENDING.
func NewExecutor(g *TaskGraph) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	return &Executor{
		Graph:    g,
		observer: NopObserver{},
		state:    NewExecutionState(g),
		errs:     make(map[string]error),
	}, nil
}

// WithObserver sets the observer notified of task transitions.
func (e *Executor) WithObserver(o Observer) *Executor {
	if o == nil {
		o = NopObserver{}
	}
	e.observer = o
	return e
}

// StateSnapshot returns a copy of the current execution state.
func (e *Executor) StateSnapshot() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Executor) snapshotLocked() ExecutionState {
	cp := make(ExecutionState, len(e.state))
	for k, v := range e.state {
		cp[k] = v
	}
	return cp
}

func (e *Executor) resultLocked() *GraphResult {
	errs := make(map[string]error, len(e.errs))
	for k, v := range e.errs {
		errs[k] = v
	}
	return &GraphResult{
		GraphHash:      e.Graph.Hash(),
		FinalState:     e.snapshotLocked(),
		ExecutionOrder: append([]string(nil), e.order...),
		Errors:         errs,
	}
}

// startLocked moves the ready tasks to RUNNING.
func (e *Executor) startLocked(names []string) error {
	for _, name := range names {
		if err := Transition(e.state, name, TaskPending, TaskRunning); err != nil {
			return err
		}
		e.order = append(e.order, name)
		e.observer.TaskStarted(name)
	}
	return nil
}

// finish records the outcome of a RUNNING task.
func (e *Executor) finish(name string, runErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if runErr == nil {
		if err := Transition(e.state, name, TaskRunning, TaskCompleted); err != nil && e.broken == nil {
			e.broken = err
		}
		e.observer.TaskFinished(name, nil)
		return
	}

	e.errs[name] = runErr
	skipped, err := FailAndPropagate(e.Graph, e.state, name)
	if err != nil && e.broken == nil {
		e.broken = err
	}
	e.observer.TaskFinished(name, runErr)
	for _, s := range skipped {
		e.observer.TaskSkipped(s, name)
	}
}

// checkFinishedLocked verifies every task is terminal. With no ready and no
// running tasks, a non-terminal task means the state is inconsistent.
func (e *Executor) checkFinishedLocked() error {
	for _, n := range e.Graph.nodes {
		if st := e.state[n.Name]; !IsTerminal(st) {
			return fmt.Errorf("no ready tasks but %q is %s", n.Name, st)
		}
	}
	return nil
}

// runAction runs the task's action. A panicking action fails its task with a
// *PanicError instead of taking down the worker goroutine.
func runAction(ctx context.Context, t Task) (err error) {
	if t.Action == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: t.Name, Value: r}
		}
	}()
	return t.Action(ctx)
}

// RunSerial executes the graph one task at a time, always picking the first
// task of the scheduler's ordered ready list.
func (e *Executor) RunSerial(ctx context.Context) (*GraphResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			e.mu.Lock()
			defer e.mu.Unlock()
			return e.resultLocked(), fmt.Errorf("execution cancelled: %w", err)
		}

		e.mu.Lock()
		if e.broken != nil {
			err := e.broken
			e.mu.Unlock()
			return nil, err
		}
		ready := GetReadyTasks(e.Graph, e.state)
		if len(ready) == 0 {
			err := e.checkFinishedLocked()
			res := e.resultLocked()
			e.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return res, nil
		}

		next := ready[0]
		if err := e.startLocked([]string{next}); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		task := e.Graph.nodesByName[next].Task
		e.mu.Unlock()

		e.finish(next, runAction(ctx, task))
	}
}

// RunParallel executes the graph with at most concurrency tasks running at
// once. Every task whose dependencies completed is dispatched as soon as a
// worker is free, in (depth, name) order.
func (e *Executor) RunParallel(ctx context.Context, concurrency int) (*GraphResult, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be > 0")
	}

	var group errgroup.Group
	group.SetLimit(concurrency)
	done := make(chan struct{}, e.Graph.Len())
	inFlight := 0

	wait := func() {
		_ = group.Wait()
	}

	for {
		e.mu.Lock()
		if e.broken != nil {
			err := e.broken
			e.mu.Unlock()
			wait()
			return nil, err
		}
		var ready []string
		if ctx.Err() == nil {
			ready = GetReadyTasks(e.Graph, e.state)
		}
		if len(ready) == 0 && inFlight == 0 {
			if err := ctx.Err(); err != nil {
				res := e.resultLocked()
				e.mu.Unlock()
				return res, fmt.Errorf("execution cancelled: %w", err)
			}
			err := e.checkFinishedLocked()
			res := e.resultLocked()
			e.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return res, nil
		}
		if err := e.startLocked(ready); err != nil {
			e.mu.Unlock()
			wait()
			return nil, err
		}
		e.mu.Unlock()

		// Go blocks while the pool is full; workers finish without the
		// coordinator holding the lock.
		for _, name := range ready {
			task := e.Graph.nodesByName[name].Task
			inFlight++
			group.Go(func() error {
				e.finish(task.Name, runAction(ctx, task))
				done <- struct{}{}
				return nil
			})
		}

		<-done
		inFlight--
	}
}
