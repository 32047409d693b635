package events

import (
	"context"
	"fmt"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

// Sink is a named event consumer.
type Sink interface {
	Name() string
	Handle(ctx context.Context, event BookingEvent) error
}

// Deduper remembers which sink already handled which event.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

// Fanout delivers each event to every sink. All sinks run even when one
// fails; the first failure is returned so the outbox retries the entry.
type Fanout struct {
	sinks     []Sink
	processed Deduper
	logger    *logging.Logger
}

func NewFanout(logger *logging.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// WithDeduper skips sinks that already handled an event.
func (f *Fanout) WithDeduper(d Deduper) *Fanout {
	f.processed = d
	return f
}

func (f *Fanout) Handle(ctx context.Context, event BookingEvent) error {
	var first error
	for _, sink := range f.sinks {
		if f.seen(ctx, sink.Name(), event.EventID) {
			continue
		}
		if err := sink.Handle(ctx, event); err != nil {
			f.logger.Warn("event sink failed", "sink", sink.Name(), "event_id", event.EventID, "type", event.Type, "booking_id", event.BookingID, "error", err)
			if first == nil {
				first = fmt.Errorf("events: sink %s: %w", sink.Name(), err)
			}
			continue
		}
		if f.processed != nil && event.EventID != "" {
			if _, err := f.processed.MarkProcessed(ctx, sink.Name(), event.EventID); err != nil {
				f.logger.Warn("event sink dedupe record failed", "sink", sink.Name(), "event_id", event.EventID, "error", err)
			}
		}
	}
	return first
}

func (f *Fanout) seen(ctx context.Context, consumer, eventID string) bool {
	if f.processed == nil || eventID == "" {
		return false
	}
	done, err := f.processed.AlreadyProcessed(ctx, consumer, eventID)
	if err != nil {
		f.logger.Warn("event sink dedupe lookup failed", "sink", consumer, "event_id", eventID, "error", err)
		return false
	}
	return done
}
