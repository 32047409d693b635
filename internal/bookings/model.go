package bookings

import (
	"time"

	"github.com/wolfman30/booking-engine/internal/pricing"
)

// Booking is a reservation of provider time by a client.
type Booking struct {
	ID              string        `json:"id"`
	Reference       string        `json:"reference"`
	ProviderID      string        `json:"provider_id"`
	ClientID        string        `json:"client_id"`
	ServiceID       string        `json:"service_id,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          Status        `json:"status"`
	Price           pricing.Money `json:"price"`
	Extras          []string      `json:"extras,omitempty"`
	Notes           string        `json:"notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	RefundFraction     float64    `json:"refund_fraction"`
	RefundAmountMinor  int64      `json:"refund_amount_minor"`

	Rescheduled      bool   `json:"rescheduled"`
	RescheduleReason string `json:"reschedule_reason,omitempty"`

	// Version increments on every committed update.
	Version int64 `json:"version"`
}

// EndTime is the exclusive end of the booked interval.
func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Interval returns [StartTime, EndTime).
func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime()}
}

func (b *Booking) clone() *Booking {
	out := *b
	out.Extras = append([]string(nil), b.Extras...)
	out.ConfirmedAt = cloneTime(b.ConfirmedAt)
	out.CompletedAt = cloneTime(b.CompletedAt)
	out.CancelledAt = cloneTime(b.CancelledAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ProviderStats aggregates a provider's bookings by status.
type ProviderStats struct {
	ProviderID      string  `json:"provider_id"`
	Pending         int64   `json:"pending"`
	Confirmed       int64   `json:"confirmed"`
	Cancelled       int64   `json:"cancelled"`
	Completed       int64   `json:"completed"`
	Upcoming        int64   `json:"upcoming"`
	RevenueMinor    int64   `json:"revenue_minor"`
	RefundedMinor   int64   `json:"refunded_minor"`
	CancellationPct float64 `json:"cancellation_pct"`
}
