package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and hands them to the sink.
// It keeps background processing testable without wiring queue
// implementations into domain code.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. Sink failures are logged and
// skipped; one bad event must not wedge the pipeline.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Emit(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "emitting audit event", "action", event.Action, "error", err)
			}
		}
	}
}
