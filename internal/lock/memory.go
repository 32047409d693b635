package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a single-process Locker with the same token semantics as
// RedisLocker. It only coordinates goroutines inside one process.
type MemoryLocker struct {
	mu       sync.Mutex
	held     map[string]memoryEntry
	opts     Options
	observer Observer
	now      func() time.Time
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker(opts Options) *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryEntry),
		opts: opts.normalized(),
		now:  time.Now,
	}
}

// WithObserver attaches lock metrics.
func (l *MemoryLocker) WithObserver(observer Observer) *MemoryLocker {
	l.observer = observer
	return l
}

// Acquire obtains key or fails with ErrNotAcquired once the retry budget is spent.
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	try := func(_ context.Context, token string) (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		now := l.now()
		if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
			return false, nil
		}
		l.held[key] = memoryEntry{token: token, expiresAt: now.Add(l.opts.TTL)}
		return true, nil
	}
	return acquireLoop(ctx, key, l.opts, l.observer, try, l.release)
}

func (l *MemoryLocker) release(_ context.Context, key, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.held[key]
	if !ok || entry.token != token || !l.now().Before(entry.expiresAt) {
		return false, nil
	}
	delete(l.held, key)
	return true, nil
}
