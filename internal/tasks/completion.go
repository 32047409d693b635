// Package tasks schedules delayed booking work on the asynq queue.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wolfman30/booking-engine/internal/bookings"
	"github.com/wolfman30/booking-engine/internal/events"
	"github.com/wolfman30/booking-engine/internal/identity"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

const (
	TypeCompleteBooking = "booking:complete"
	completionMaxRetry  = 10
)

// CompletionPayload is the body of a booking:complete task.
type CompletionPayload struct {
	BookingID string    `json:"booking_id"`
	EndTime   time.Time `json:"end_time"`
}

// NewCompletionTask builds a task that fires at the booking's end. The task
// id makes repeat scheduling for the same end time a no-op.
func NewCompletionTask(bookingID string, at time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(CompletionPayload{BookingID: bookingID, EndTime: at.UTC()})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCompleteBooking, b)
	opts := []asynq.Option{
		asynq.ProcessAt(at),
		asynq.TaskID(fmt.Sprintf("complete:%s:%d", bookingID, at.Unix())),
		asynq.MaxRetry(completionMaxRetry),
	}
	return task, opts, nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CompletionScheduler enqueues booking:complete tasks.
type CompletionScheduler struct {
	client enqueuer
	logger *logging.Logger
}

func NewCompletionScheduler(client *asynq.Client, logger *logging.Logger) *CompletionScheduler {
	if client == nil {
		panic("tasks: asynq client required")
	}
	return newCompletionScheduler(client, logger)
}

func newCompletionScheduler(client enqueuer, logger *logging.Logger) *CompletionScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CompletionScheduler{client: client, logger: logger}
}

func (s *CompletionScheduler) ScheduleCompletion(ctx context.Context, bookingID string, at time.Time) error {
	task, opts, err := NewCompletionTask(bookingID, at)
	if err != nil {
		return fmt.Errorf("tasks: build completion task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.logger.Debug("completion already scheduled", "booking_id", bookingID, "at", at)
		return nil
	}
	if err != nil {
		return fmt.Errorf("tasks: enqueue completion: %w", err)
	}
	s.logger.Info("completion scheduled", "booking_id", bookingID, "at", at, "task_id", info.ID)
	return nil
}

// Completer closes a booking.
type Completer interface {
	Complete(ctx context.Context, bookingID string, actor identity.Actor) (*bookings.Booking, error)
}

// HandleCompletion completes the booking as the system actor. A booking
// that was cancelled, already completed or rescheduled later is done.
func HandleCompletion(completer Completer, logger *logging.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(ctx context.Context, task *asynq.Task) error {
		var p CompletionPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil || p.BookingID == "" {
			logger.Error("invalid completion payload", "error", err)
			return fmt.Errorf("tasks: invalid completion payload: %w", asynq.SkipRetry)
		}

		_, err := completer.Complete(ctx, p.BookingID, identity.System())
		switch {
		case err == nil:
			logger.Info("booking completed by task", "booking_id", p.BookingID)
			return nil
		case errors.Is(err, bookings.ErrInvalidState), errors.Is(err, bookings.ErrNotFound):
			logger.Debug("completion task skipped", "booking_id", p.BookingID, "reason", err)
			return nil
		default:
			logger.Warn("completion task failed", "booking_id", p.BookingID, "error", err)
			return err
		}
	}
}

var _ events.CompletionScheduler = (*CompletionScheduler)(nil)
