package dag

// Observer is notified of task transitions.
//
// Methods are called with the executor's state lock held, so calls never
// overlap. Implementations must not call back into the Executor.
type Observer interface {
	TaskStarted(name string)
	// TaskFinished reports a completed task (err == nil) or a failed one.
	TaskFinished(name string, err error)
	// TaskSkipped reports a task skipped because cause failed.
	TaskSkipped(name, cause string)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) TaskStarted(string)         {}
func (NopObserver) TaskFinished(string, error) {}
func (NopObserver) TaskSkipped(string, string) {}

// Observers fans notifications out to each observer in order.
type Observers []Observer

func (o Observers) TaskStarted(name string) {
	for _, ob := range o {
		ob.TaskStarted(name)
	}
}

func (o Observers) TaskFinished(name string, err error) {
	for _, ob := range o {
		ob.TaskFinished(name, err)
	}
}

func (o Observers) TaskSkipped(name, cause string) {
	for _, ob := range o {
		ob.TaskSkipped(name, cause)
	}
}
