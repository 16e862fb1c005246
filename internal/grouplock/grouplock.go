// Package grouplock serializes work per election group. Submissions,
// deletes and restores for the same (normalized value, validation type)
// pair must not interleave their read-elect-write cycles; unrelated groups
// proceed concurrently.
package grouplock

import "context"

// Locker runs fn while holding the lock for key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
