package grouplock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"veritas/pkg/platform/sentinel"
)

// releaseScript deletes the lock only when the token matches, so an expired
// lock re-acquired by another process is never released by the first owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements the group lock with SET NX PX, for deployments
// running more than one instance against the same database.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

type RedisOptions struct {
	// TTL bounds how long a crashed holder can block the group.
	TTL time.Duration
	// Wait bounds how long an acquirer spins before giving up.
	Wait time.Duration
	// Retry is the polling interval while the lock is held elsewhere.
	Retry time.Duration
}

func NewRedisLocker(client *redis.Client, opts RedisOptions) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 5 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, ttl: opts.TTL, wait: opts.Wait, retry: opts.Retry}
}

func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := "grouplock:" + key
	token := uuid.NewString()

	if err := l.acquire(ctx, redisKey, token); err != nil {
		return err
	}
	defer l.releaseLock(redisKey, token)

	return fn(ctx)
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return sentinel.ErrUnavailable
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return sentinel.ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) releaseLock(key, token string) {
	// Release must run even when the request context is already done.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
