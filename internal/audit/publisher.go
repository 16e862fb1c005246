package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands events to the worker without blocking domain logic. A
// full inbox drops the event and logs it; audit must never stall the
// validation path.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.inbox == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event", "action", event.Action)
	}
}
