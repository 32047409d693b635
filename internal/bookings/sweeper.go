package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/booking-engine/internal/identity"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

// Sweeper completes confirmed bookings whose service window has ended. It
// backs up the per-booking completion tasks; both paths tolerate the other
// having run first.
type Sweeper struct {
	manager   *Manager
	logger    *logging.Logger
	interval  time.Duration
	batchSize int
}

func NewSweeper(manager *Manager, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		manager:   manager,
		logger:    logger,
		interval:  time.Minute,
		batchSize: 100,
	}
}

func (s *Sweeper) WithInterval(interval time.Duration) *Sweeper {
	if interval > 0 {
		s.interval = interval
	}
	return s
}

func (s *Sweeper) WithBatchSize(size int) *Sweeper {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Start runs the sweep on every tick until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	if s.manager == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("completion sweep failed", "error", err)
			}
		}
	}
}

// Run completes one batch of due bookings and returns how many it closed.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	due, err := s.manager.repo.ListDueForCompletion(ctx, s.manager.now(), s.batchSize)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range due {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		_, err := s.manager.Complete(ctx, b.ID, identity.System())
		switch {
		case err == nil:
			completed++
		case errors.Is(err, ErrInvalidState):
			s.logger.Debug("booking no longer completable", "booking_id", b.ID, "error", err)
		default:
			s.logger.Warn("booking completion failed", "booking_id", b.ID, "error", err)
		}
	}
	if completed > 0 {
		s.logger.Info("completion sweep finished", "completed", completed, "due", len(due))
	}
	return completed, nil
}
