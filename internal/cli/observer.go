package cli

import "log/slog"

// taskLogger reports task progress through the run's logger.
type taskLogger struct {
	log *slog.Logger
}

func (l taskLogger) TaskStarted(name string) {
	l.log.Debug("Task started", "task", name)
}

func (l taskLogger) TaskFinished(name string, err error) {
	if err != nil {
		l.log.Error("Task failed", "task", name, "error", err)
		return
	}
	l.log.Info("Task completed", "task", name)
}

func (l taskLogger) TaskSkipped(name, cause string) {
	l.log.Warn("Task skipped", "task", name, "upstream", cause)
}
