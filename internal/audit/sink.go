package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Sink persists audit events.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// MemorySink buffers events in process, for tests and inspection.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// LogSink writes events to the structured log. It is the fallback when no
// kafka brokers are configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"action", event.Action,
		"app", event.App,
		"record_id", event.RecordID,
		"validation_type", event.ValidationType,
		"group_key", event.GroupKey,
		"decision", event.Decision,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	return nil
}
