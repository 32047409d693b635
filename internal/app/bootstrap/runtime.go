package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/booking-engine/internal/config"
	"github.com/wolfman30/booking-engine/internal/lock"
	"github.com/wolfman30/booking-engine/internal/observability/metrics"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects the booking repository pool. It returns nil
// without error when no database is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || !cfg.UsesPostgres() {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres connected")
	return pool, nil
}

// OpenAuditDB opens the database/sql handle used by the transition recorder.
func OpenAuditDB(cfg *appconfig.Config) (*sql.DB, error) {
	if cfg == nil || !cfg.UsesPostgres() {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	return db, nil
}

// LockOptions maps configuration onto lock settings.
func LockOptions(cfg *appconfig.Config) lock.Options {
	if cfg == nil {
		return lock.DefaultOptions()
	}
	return lock.Options{
		TTL:         cfg.LockTTL,
		MaxAttempts: cfg.LockMaxAttempts,
		BaseDelay:   cfg.LockRetryBaseDelay,
		MaxDelay:    cfg.LockRetryMaxDelay,
	}
}

// BuildLocker prefers the shared Redis lock and falls back to a process-local
// one, which only serializes a single replica.
func BuildLocker(cfg *appconfig.Config, client *redis.Client, m *metrics.BookingMetrics, logger *logging.Logger) lock.Locker {
	if logger == nil {
		logger = logging.Default()
	}
	opts := LockOptions(cfg)
	if client == nil {
		logger.Warn("redis unavailable; using in-process reservation lock")
		locker := lock.NewMemoryLocker(opts)
		if m != nil {
			locker = locker.WithObserver(m)
		}
		return locker
	}
	locker := lock.NewRedisLocker(client, opts, logger)
	if m != nil {
		locker = locker.WithObserver(m)
	}
	return locker
}
