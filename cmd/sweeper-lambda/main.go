package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/booking-engine/internal/app/bootstrap"
	"github.com/wolfman30/booking-engine/internal/audit"
	"github.com/wolfman30/booking-engine/internal/availability"
	"github.com/wolfman30/booking-engine/internal/bookings"
	appconfig "github.com/wolfman30/booking-engine/internal/config"
	"github.com/wolfman30/booking-engine/internal/pricing"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

// SweepResult is returned to the scheduler invocation.
type SweepResult struct {
	Completed int `json:"completed"`
}

type sweeper interface {
	Run(ctx context.Context) (int, error)
}

func newHandler(s sweeper, logger *logging.Logger) func(context.Context, events.CloudWatchEvent) (SweepResult, error) {
	return func(ctx context.Context, evt events.CloudWatchEvent) (SweepResult, error) {
		n, err := s.Run(ctx)
		if err != nil {
			logger.Error("scheduled sweep failed", "event_id", evt.ID, "completed", n, "error", err)
			return SweepResult{Completed: n}, err
		}
		logger.Info("scheduled sweep finished", "event_id", evt.ID, "completed", n)
		return SweepResult{Completed: n}, nil
	}
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	s, cleanup, err := buildSweeper(ctx, cfg, logger)
	if err != nil {
		logger.Error("sweeper lambda init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	lambda.Start(newHandler(s, logger))
}

// buildSweeper wires a manager over durable storage. Only Complete runs here,
// so availability and pricing get empty stores.
func buildSweeper(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*bookings.Sweeper, func(), error) {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	auditDB, err := bootstrap.OpenAuditDB(cfg)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	manager := bookings.NewManager(bookings.Dependencies{
		Repository:   bookings.NewPostgresRepository(pool),
		Availability: availability.NewService(availability.NewMemoryStore(), logger),
		Locker:       bootstrap.BuildLocker(cfg, redisClient, nil, logger),
		Pricing:      pricing.NewEngine(pricing.DefaultConfig()),
		Rates:        pricing.NewMemoryRateCard(),
	}, logger, bookings.WithRecorder(audit.NewRecorder(auditDB)))

	cleanup := func() {
		pool.Close()
		_ = auditDB.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	return bookings.NewSweeper(manager, logger), cleanup, nil
}
