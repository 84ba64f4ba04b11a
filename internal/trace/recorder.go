package trace

import "sync"

// Sink receives trace events. Record must not panic or block.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// SafeRecord records an event, swallowing any panic from a faulty sink.
func SafeRecord(s Sink, event Event) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Record(event)
}

// Recorder is a concurrency-safe in-memory collector.
//
// It also observes task transitions of the scheduler: a completed task
// becomes TaskExecuted, a failed one TaskFailed and a skipped one TaskSkipped.
type Recorder struct {
	// Classify maps a task error to a stable reason code. When nil, every
	// failure is recorded with ReasonTaskError.
	Classify func(err error) string

	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// TaskStarted is a no-op; the trace holds outcomes only.
func (r *Recorder) TaskStarted(string) {}

func (r *Recorder) TaskFinished(name string, err error) {
	if err == nil {
		r.Record(Event{Kind: EventTaskExecuted, TaskID: name})
		return
	}
	reason := ReasonTaskError
	if r.Classify != nil {
		if c := r.Classify(err); c != "" {
			reason = c
		}
	}
	r.Record(Event{Kind: EventTaskFailed, TaskID: name, Reason: reason})
}

func (r *Recorder) TaskSkipped(name, cause string) {
	r.Record(Event{Kind: EventTaskSkipped, TaskID: name, Reason: ReasonUpstreamFailed, CauseTaskID: cause})
}

// Snapshot returns a copy of all recorded events.
func (r *Recorder) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Trace builds a canonical ExecutionTrace from the recorded events.
func (r *Recorder) Trace(graphHash string) ExecutionTrace {
	tr := ExecutionTrace{GraphHash: graphHash, Events: r.Snapshot()}
	tr.Canonicalize()
	return tr
}
