package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/booking-engine/cmd/mainconfig"
	"github.com/wolfman30/booking-engine/internal/api/router"
	"github.com/wolfman30/booking-engine/internal/app/bootstrap"
	"github.com/wolfman30/booking-engine/internal/audit"
	"github.com/wolfman30/booking-engine/internal/availability"
	"github.com/wolfman30/booking-engine/internal/bookings"
	appconfig "github.com/wolfman30/booking-engine/internal/config"
	"github.com/wolfman30/booking-engine/internal/events"
	"github.com/wolfman30/booking-engine/internal/notify"
	"github.com/wolfman30/booking-engine/internal/observability/metrics"
	"github.com/wolfman30/booking-engine/internal/pricing"
	"github.com/wolfman30/booking-engine/internal/tasks"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to wire application", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.startBackground(ctx)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	a.wait()
	logger.Info("server stopped")
}

// app holds the wired graph and the background loops that serve it.
type app struct {
	handler   http.Handler
	manager   *bookings.Manager
	sweeper   *bookings.Sweeper
	deliverer *events.Deliverer
	worker    *tasks.Worker

	logger  *logging.Logger
	wg      sync.WaitGroup
	closers []func()
}

func newApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{logger: logger}
	bookingMetrics := metrics.NewBookingMetrics(reg)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	auditDB, err := bootstrap.OpenAuditDB(cfg)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
	}
	if auditDB != nil {
		a.closers = append(a.closers, func() { _ = auditDB.Close() })
	}

	var awsCfg *aws.Config
	if cfg.EmailProvider == "ses" || cfg.CalendarQueueURL != "" {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("aws config unavailable; aws sinks disabled", "error", err)
		} else {
			awsCfg = &loaded
		}
	}

	var (
		repo    bookings.Repository = bookings.NewMemoryRepository()
		windows availability.Store  = availability.NewMemoryStore()
		rates   pricing.RateCard    = pricing.NewMemoryRateCard()
	)
	if pool != nil {
		repo = bookings.NewPostgresRepository(pool)
	}
	if redisClient != nil {
		windows = availability.NewRedisStore(redisClient)
		rates = pricing.NewRedisRateCard(redisClient)
	}
	if cfg.DefaultHourlyRateMinor > 0 {
		rates = pricing.FallbackRateCard{
			Card:    rates,
			Default: pricing.Money{AmountMinor: cfg.DefaultHourlyRateMinor, Currency: cfg.DefaultCurrency},
		}
	}

	var recorder bookings.TransitionRecorder = audit.NewMemoryRecorder()
	if auditDB != nil {
		recorder = audit.NewRecorder(auditDB)
	}

	collabs := events.Collaborators{
		Notifier: notify.NewEmailSink(
			bootstrap.BuildEmailSender(cfg, awsCfg, logger),
			bootstrap.BuildDirectory(redisClient),
			logger,
		),
		Payments: bootstrap.BuildPaymentGateway(cfg, logger),
		Calendar: bootstrap.BuildCalendarSink(cfg, awsCfg),
	}
	if cfg.TaskQueueEnabled && redisClient != nil {
		taskClient := asynq.NewClient(asynqRedisOpt(cfg))
		a.closers = append(a.closers, func() { _ = taskClient.Close() })
		collabs.Completion = tasks.NewCompletionScheduler(taskClient, logger)
	}

	fanout := events.NewFanout(logger, collabs.Sinks()...)
	var dispatcher events.Dispatcher
	if pool != nil {
		fanout = fanout.WithDeduper(events.NewProcessedStore(pool))
		outbox := events.NewOutboxStore(pool)
		dispatcher = outbox
		a.deliverer = events.NewDeliverer(outbox, fanout, logger).WithInterval(cfg.OutboxPollInterval)
	} else {
		dispatcher = events.NewInlineDispatcher(fanout)
	}

	availabilitySvc := availability.NewService(windows, logger)
	a.manager = bookings.NewManager(bookings.Dependencies{
		Repository:   repo,
		Availability: availabilitySvc,
		Locker:       bootstrap.BuildLocker(cfg, redisClient, bookingMetrics, logger),
		Pricing:      pricing.NewEngine(pricingConfig(cfg)),
		Rates:        rates,
	}, logger,
		bookings.WithDispatcher(dispatcher),
		bookings.WithRecorder(recorder),
		bookings.WithMetrics(bookingMetrics),
		bookings.WithFullRefundOnOperatorCancel(cfg.OperatorCancelRefund),
	)

	a.sweeper = bookings.NewSweeper(a.manager, logger).WithInterval(cfg.CompletionSweepInterval)
	if collabs.Completion != nil {
		a.worker = tasks.NewWorker(asynqRedisOpt(cfg), a.manager, logger)
	}

	a.handler = router.New(&router.Config{
		Logger:              logger,
		BookingsHandler:     bookings.NewHandler(a.manager, logger),
		AvailabilityHandler: availability.NewHandler(availabilitySvc, logger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		AuthSecret:          cfg.AuthJWTSecret,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		Done:                ctx.Done(),
	})
	return a, nil
}

// startBackground launches the sweeper, the outbox deliverer and the task
// worker. They stop when ctx is cancelled.
func (a *app) startBackground(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sweeper.Start(ctx)
	}()
	if a.deliverer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.deliverer.Start(ctx)
		}()
	}
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			a.logger.Error("task worker failed to start", "error", err)
			return
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			<-ctx.Done()
			a.worker.Shutdown()
		}()
	}
}

func (a *app) wait() { a.wg.Wait() }

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func pricingConfig(cfg *appconfig.Config) pricing.Config {
	pc := pricing.DefaultConfig()
	if cfg.WeekendSurcharge > 0 {
		pc.WeekendSurcharge = cfg.WeekendSurcharge
	}
	return pc
}

func asynqRedisOpt(cfg *appconfig.Config) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt
}
