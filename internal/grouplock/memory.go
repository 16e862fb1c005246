package grouplock

import (
	"context"
	"sync"
)

// MemoryLocker keys mutexes by group. Entries are reference counted so the
// map does not grow with every value ever seen.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*refLock)}
}

func (l *MemoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	entry := l.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.release(key, entry)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *MemoryLocker) acquire(key string) *refLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &refLock{}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (l *MemoryLocker) release(key string, entry *refLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}
