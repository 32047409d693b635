package events

import (
	"context"
	"time"

	"github.com/wolfman30/booking-engine/internal/pricing"
)

// NotificationSink tells a user about a booking event.
type NotificationSink interface {
	Notify(ctx context.Context, userID, event string, payload map[string]any) error
}

// PaymentGateway moves money for a booking.
type PaymentGateway interface {
	Authorize(ctx context.Context, bookingID string, amount pricing.Money) error
	Refund(ctx context.Context, bookingID string, amount pricing.Money) error
}

// CalendarEvent is the calendar projection of a booking.
type CalendarEvent struct {
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"reference"`
	ProviderID string    `json:"provider_id"`
	ClientID   string    `json:"client_id"`
	ServiceID  string    `json:"service_id,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Action     string    `json:"action"`
}

// CalendarSink publishes calendar entries.
type CalendarSink interface {
	CreateEvent(ctx context.Context, event CalendarEvent) error
}

// CompletionScheduler arranges for a booking to be completed at a time.
type CompletionScheduler interface {
	ScheduleCompletion(ctx context.Context, bookingID string, at time.Time) error
}

// Collaborators bundles the outbound interfaces. Nil members are skipped.
type Collaborators struct {
	Notifier   NotificationSink
	Payments   PaymentGateway
	Calendar   CalendarSink
	Completion CompletionScheduler
}

// Sinks adapts the collaborators to named fanout sinks.
func (c Collaborators) Sinks() []Sink {
	var sinks []Sink
	if c.Payments != nil {
		sinks = append(sinks, paymentSink{gateway: c.Payments})
	}
	if c.Notifier != nil {
		sinks = append(sinks, notifySink{notifier: c.Notifier})
	}
	if c.Calendar != nil {
		sinks = append(sinks, calendarSink{calendar: c.Calendar})
	}
	if c.Completion != nil {
		sinks = append(sinks, completionSink{scheduler: c.Completion})
	}
	return sinks
}

type paymentSink struct {
	gateway PaymentGateway
}

func (paymentSink) Name() string { return "payments" }

func (s paymentSink) Handle(ctx context.Context, e BookingEvent) error {
	switch e.Type {
	case TypeCreated:
		if e.AmountMinor <= 0 {
			return nil
		}
		return s.gateway.Authorize(ctx, e.BookingID, pricing.Money{AmountMinor: e.AmountMinor, Currency: e.Currency})
	case TypeCancelled:
		if e.RefundAmountMinor <= 0 {
			return nil
		}
		return s.gateway.Refund(ctx, e.BookingID, pricing.Money{AmountMinor: e.RefundAmountMinor, Currency: e.Currency})
	}
	return nil
}

type notifySink struct {
	notifier NotificationSink
}

func (notifySink) Name() string { return "notify" }

func (s notifySink) Handle(ctx context.Context, e BookingEvent) error {
	payload := notificationPayload(e)
	for _, userID := range recipients(e) {
		if err := s.notifier.Notify(ctx, userID, string(e.Type), payload); err != nil {
			return err
		}
	}
	return nil
}

// recipients picks who hears about an event. The counter-party of a
// reschedule is whoever did not make it.
func recipients(e BookingEvent) []string {
	switch e.Type {
	case TypeCreated:
		return []string{e.ProviderID}
	case TypeConfirmed, TypeCompleted:
		return []string{e.ClientID}
	case TypeCancelled:
		return []string{e.ClientID, e.ProviderID}
	case TypeRescheduled:
		switch e.ActorID {
		case e.ClientID:
			return []string{e.ProviderID}
		case e.ProviderID:
			return []string{e.ClientID}
		default:
			return []string{e.ClientID, e.ProviderID}
		}
	}
	return nil
}

func notificationPayload(e BookingEvent) map[string]any {
	payload := map[string]any{
		"booking_id":       e.BookingID,
		"reference":        e.Reference,
		"provider_id":      e.ProviderID,
		"client_id":        e.ClientID,
		"start_time":       e.StartTime.UTC().Format(time.RFC3339),
		"duration_minutes": e.DurationMinutes,
		"status":           e.Status,
		"amount_minor":     e.AmountMinor,
		"currency":         e.Currency,
	}
	if e.Reason != "" {
		payload["reason"] = e.Reason
	}
	if e.Type == TypeCancelled {
		payload["refund_fraction"] = e.RefundFraction
		payload["refund_amount_minor"] = e.RefundAmountMinor
	}
	if e.PreviousStartTime != nil {
		payload["previous_start_time"] = e.PreviousStartTime.UTC().Format(time.RFC3339)
	}
	return payload
}

type calendarSink struct {
	calendar CalendarSink
}

func (calendarSink) Name() string { return "calendar" }

func (s calendarSink) Handle(ctx context.Context, e BookingEvent) error {
	var action string
	switch {
	case e.Type == TypeConfirmed:
		action = "create"
	case e.Type == TypeRescheduled && e.Status == "confirmed":
		action = "update"
	case e.Type == TypeCancelled && e.FromStatus == "confirmed":
		action = "delete"
	default:
		return nil
	}
	return s.calendar.CreateEvent(ctx, CalendarEvent{
		BookingID:  e.BookingID,
		Reference:  e.Reference,
		ProviderID: e.ProviderID,
		ClientID:   e.ClientID,
		ServiceID:  e.ServiceID,
		Start:      e.StartTime,
		End:        e.EndTime(),
		Action:     action,
	})
}

type completionSink struct {
	scheduler CompletionScheduler
}

func (completionSink) Name() string { return "completion" }

func (s completionSink) Handle(ctx context.Context, e BookingEvent) error {
	if e.Status != "confirmed" {
		return nil
	}
	if e.Type != TypeConfirmed && e.Type != TypeRescheduled {
		return nil
	}
	return s.scheduler.ScheduleCompletion(ctx, e.BookingID, e.EndTime())
}
