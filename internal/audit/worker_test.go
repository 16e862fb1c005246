package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerDrainsInbox(t *testing.T) {
	sink := NewMemorySink()
	inbox := make(chan Event, 8)
	worker := NewWorker(sink, inbox, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	pub := NewPublisher(inbox, slog.Default())
	pub.Emit(ctx, Event{Action: ActionValidationRecorded, App: "crm_app"})
	pub.Emit(ctx, Event{Action: ActionGoldenElected, App: "crm_app"})

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	events := sink.Events()
	assert.Equal(t, ActionValidationRecorded, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	inbox := make(chan Event, 1)
	pub := NewPublisher(inbox, slog.Default())

	pub.Emit(context.Background(), Event{Action: ActionValidationRecorded})
	// Second emit cannot block even though nothing drains the inbox.
	pub.Emit(context.Background(), Event{Action: ActionRecordSoftDeleted})

	assert.Len(t, inbox, 1)
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher
	pub.Emit(context.Background(), Event{Action: ActionValidationRecorded})
}
