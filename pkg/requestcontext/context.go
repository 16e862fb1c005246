// Package requestcontext carries per-request values through context with
// typed keys, so middleware and services agree on what is stored without
// sharing string constants.
package requestcontext

import (
	"context"
	"time"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	requestTimeKey
)

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request correlation ID, or "" when absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRequestTime pins the moment the request entered the system. All
// time-dependent logic downstream (recency scoring, timestamps) should read
// this instead of calling time.Now, so a single request observes one clock.
func WithRequestTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

// RequestTime returns the pinned request time, falling back to time.Now when
// the middleware did not run (e.g. in tests exercising a service directly).
func RequestTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}
