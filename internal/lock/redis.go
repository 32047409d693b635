package lock

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

var lockTracer = otel.Tracer("booking.internal.lock")

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete script.
type RedisLocker struct {
	client   *redis.Client
	opts     Options
	observer Observer
	logger   *logging.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client, opts Options, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("lock: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{client: client, opts: opts.normalized(), logger: logger}
}

// WithObserver attaches lock metrics.
func (l *RedisLocker) WithObserver(observer Observer) *RedisLocker {
	l.observer = observer
	return l
}

// Acquire obtains key or fails with ErrNotAcquired once the retry budget is spent.
// Redis errors count as failed attempts.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (*Lease, error) {
	ctx, span := lockTracer.Start(ctx, "lock.acquire")
	defer span.End()
	span.SetAttributes(attribute.String("lock.key", key))

	try := func(ctx context.Context, token string) (bool, error) {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			l.logger.Debug("lock attempt failed", "key", key, "error", err)
			return false, fmt.Errorf("lock: setnx: %w", err)
		}
		return ok, nil
	}
	lease, err := acquireLoop(ctx, key, l.opts, l.observer, try, l.release)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return lease, nil
}

func (l *RedisLocker) release(ctx context.Context, key, token string) (bool, error) {
	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
