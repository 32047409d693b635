// Package lock provides the short-lived, token-owned mutual exclusion used to
// guard the check-then-write section of booking reservations.
package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

var (
	// ErrNotAcquired is returned once the retry budget is spent without obtaining the lock.
	ErrNotAcquired = errors.New("lock: not acquired")
	// ErrLockLost is returned on release when the key expired or is held by another token.
	ErrLockLost = errors.New("lock: lease lost before release")
)

const releaseTimeout = 2 * time.Second

// Locker acquires exclusive leases on string keys.
type Locker interface {
	Acquire(ctx context.Context, key string) (*Lease, error)
}

// Observer receives lock timing signals. BookingMetrics satisfies it.
type Observer interface {
	ObserveLockWait(outcome string, seconds float64)
	IncLockContention()
}

// Options tunes lease lifetime and the acquisition retry budget.
type Options struct {
	// TTL must exceed the worst-case critical section.
	TTL         time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultOptions returns the production lock settings.
func DefaultOptions() Options {
	return Options{
		TTL:         10 * time.Second,
		MaxAttempts: 20,
		BaseDelay:   25 * time.Millisecond,
		MaxDelay:    250 * time.Millisecond,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = def.TTL
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = def.BaseDelay
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	return o
}

// ProviderKey is the lock key guarding every reservation for one provider.
func ProviderKey(providerID string) string {
	return "booking:lock:provider:" + providerID
}

type releaseFunc func(ctx context.Context, key, token string) (bool, error)

// Lease is proof of ownership for a held key.
type Lease struct {
	key        string
	token      string
	acquiredAt time.Time
	release    releaseFunc

	once sync.Once
	err  error
}

// Key returns the locked key.
func (l *Lease) Key() string { return l.key }

// Token returns the random ownership token stored under the key.
func (l *Lease) Token() string { return l.token }

// Release deletes the key only if it still holds this lease's token.
// Subsequent calls return the first result.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		ok, err := l.release(ctx, l.key, l.token)
		switch {
		case err != nil:
			l.err = fmt.Errorf("lock: release %s: %w", l.key, err)
		case !ok:
			l.err = fmt.Errorf("%w: %s", ErrLockLost, l.key)
		}
	})
	return l.err
}

// WithLock runs fn while holding key. The lease is released on every path,
// including panics, using a context that outlives cancellation of ctx.
// Release failures are logged; they never replace fn's result because the
// guarded work has already happened by then.
func WithLock(ctx context.Context, locker Locker, key string, logger *logging.Logger, fn func(ctx context.Context) error) error {
	lease, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			if logger == nil {
				logger = logging.Default()
			}
			logger.Warn("lock release failed", "key", key, "held_for_ms", time.Since(lease.acquiredAt).Milliseconds(), "error", err)
		}
	}()
	return fn(ctx)
}

// acquireLoop performs bounded attempts with full-jitter exponential backoff.
// Each attempt uses a fresh random token.
func acquireLoop(ctx context.Context, key string, opts Options, observer Observer, try func(ctx context.Context, token string) (bool, error), release releaseFunc) (*Lease, error) {
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		token := uuid.NewString()
		ok, err := try(ctx, token)
		if err == nil && ok {
			observeWait(observer, "acquired", start)
			return &Lease{key: key, token: token, acquiredAt: time.Now(), release: release}, nil
		}
		if err != nil {
			lastErr = err
		} else if attempt == 1 && observer != nil {
			observer.IncLockContention()
		}
		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleep(ctx, backoff(opts, attempt)); err != nil {
			observeWait(observer, "cancelled", start)
			return nil, err
		}
	}
	observeWait(observer, "exhausted", start)
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrNotAcquired, key, opts.MaxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrNotAcquired, key, opts.MaxAttempts)
}

func backoff(opts Options, attempt int) time.Duration {
	ceiling := opts.BaseDelay << (attempt - 1)
	if ceiling <= 0 || ceiling > opts.MaxDelay {
		ceiling = opts.MaxDelay
	}
	return time.Duration(rand.Int64N(int64(ceiling)) + 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func observeWait(observer Observer, outcome string, start time.Time) {
	if observer == nil {
		return
	}
	observer.ObserveLockWait(outcome, time.Since(start).Seconds())
}
