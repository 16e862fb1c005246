// Package redisclient builds the shared redis client.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New parses a redis URL, applies timeouts and verifies connectivity.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	ropts.DialTimeout = opts.DialTimeout
	ropts.ReadTimeout = opts.ReadTimeout
	ropts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}
