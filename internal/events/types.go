// Package events carries committed booking transitions to downstream
// collaborators with at-least-once delivery.
package events

import (
	"context"
	"time"
)

// Type names a booking lifecycle event.
type Type string

const (
	TypeCreated     Type = "booking.created"
	TypeConfirmed   Type = "booking.confirmed"
	TypeCancelled   Type = "booking.cancelled"
	TypeRescheduled Type = "booking.rescheduled"
	TypeCompleted   Type = "booking.completed"
)

// BookingEvent describes one committed transition.
type BookingEvent struct {
	EventID           string     `json:"event_id"`
	Type              Type       `json:"type"`
	BookingID         string     `json:"booking_id"`
	Reference         string     `json:"reference"`
	ProviderID        string     `json:"provider_id"`
	ClientID          string     `json:"client_id"`
	ServiceID         string     `json:"service_id,omitempty"`
	Status            string     `json:"status"`
	FromStatus        string     `json:"from_status,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	DurationMinutes   int        `json:"duration_minutes"`
	PreviousStartTime *time.Time `json:"previous_start_time,omitempty"`
	AmountMinor       int64      `json:"amount_minor"`
	Currency          string     `json:"currency"`
	ActorID           string     `json:"actor_id"`
	ActorRole         string     `json:"actor_role"`
	Reason            string     `json:"reason,omitempty"`
	RefundFraction    float64    `json:"refund_fraction,omitempty"`
	RefundAmountMinor int64      `json:"refund_amount_minor,omitempty"`
	OccurredAt        time.Time  `json:"occurred_at"`
}

// EndTime is the exclusive end of the booked interval.
func (e BookingEvent) EndTime() time.Time {
	return e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// Dispatcher accepts events after their transition has committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, event BookingEvent) error
}

// Handler consumes events.
type Handler interface {
	Handle(ctx context.Context, event BookingEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event BookingEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event BookingEvent) error {
	return f(ctx, event)
}
