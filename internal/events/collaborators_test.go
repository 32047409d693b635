package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-engine/internal/pricing"
)

type notification struct {
	userID string
	event  string
}

type fakeCollaborators struct {
	notifications []notification
	authorized    []pricing.Money
	refunded      []pricing.Money
	calendar      []CalendarEvent
	scheduled     []time.Time
}

func (f *fakeCollaborators) Notify(_ context.Context, userID, event string, _ map[string]any) error {
	f.notifications = append(f.notifications, notification{userID: userID, event: event})
	return nil
}

func (f *fakeCollaborators) Authorize(_ context.Context, _ string, amount pricing.Money) error {
	f.authorized = append(f.authorized, amount)
	return nil
}

func (f *fakeCollaborators) Refund(_ context.Context, _ string, amount pricing.Money) error {
	f.refunded = append(f.refunded, amount)
	return nil
}

func (f *fakeCollaborators) CreateEvent(_ context.Context, e CalendarEvent) error {
	f.calendar = append(f.calendar, e)
	return nil
}

func (f *fakeCollaborators) ScheduleCompletion(_ context.Context, _ string, at time.Time) error {
	f.scheduled = append(f.scheduled, at)
	return nil
}

func newCollaboratorFanout(f *fakeCollaborators) *Fanout {
	return NewFanout(nil, Collaborators{Notifier: f, Payments: f, Calendar: f, Completion: f}.Sinks()...)
}

func baseEvent(typ Type, status string) BookingEvent {
	return BookingEvent{
		EventID:         "e-" + string(typ),
		Type:            typ,
		BookingID:       "b-1",
		Reference:       "BK-0000ABCD",
		ProviderID:      "prov-1",
		ClientID:        "client-1",
		Status:          status,
		StartTime:       time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		AmountMinor:     10000,
		Currency:        "USD",
	}
}

func TestCollaborators_Created(t *testing.T) {
	f := &fakeCollaborators{}
	require.NoError(t, newCollaboratorFanout(f).Handle(context.Background(), baseEvent(TypeCreated, "pending")))

	assert.Equal(t, []pricing.Money{{AmountMinor: 10000, Currency: "USD"}}, f.authorized)
	assert.Equal(t, []notification{{userID: "prov-1", event: "booking.created"}}, f.notifications)
	assert.Empty(t, f.calendar)
	assert.Empty(t, f.scheduled)
}

func TestCollaborators_Confirmed(t *testing.T) {
	f := &fakeCollaborators{}
	require.NoError(t, newCollaboratorFanout(f).Handle(context.Background(), baseEvent(TypeConfirmed, "confirmed")))

	assert.Equal(t, []notification{{userID: "client-1", event: "booking.confirmed"}}, f.notifications)
	require.Len(t, f.calendar, 1)
	assert.Equal(t, "create", f.calendar[0].Action)
	assert.Equal(t, time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC), f.calendar[0].End)
	assert.Equal(t, []time.Time{time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)}, f.scheduled)
}

func TestCollaborators_CancelledRefundsAndNotifiesBoth(t *testing.T) {
	f := &fakeCollaborators{}
	e := baseEvent(TypeCancelled, "cancelled")
	e.FromStatus = "confirmed"
	e.RefundFraction = 0.5
	e.RefundAmountMinor = 5000
	require.NoError(t, newCollaboratorFanout(f).Handle(context.Background(), e))

	assert.Equal(t, []pricing.Money{{AmountMinor: 5000, Currency: "USD"}}, f.refunded)
	assert.Len(t, f.notifications, 2)
	require.Len(t, f.calendar, 1)
	assert.Equal(t, "delete", f.calendar[0].Action)

	f = &fakeCollaborators{}
	e.FromStatus = "pending"
	e.RefundAmountMinor = 0
	require.NoError(t, newCollaboratorFanout(f).Handle(context.Background(), e))
	assert.Empty(t, f.refunded)
	assert.Empty(t, f.calendar)
}

func TestCollaborators_RescheduleNotifiesCounterParty(t *testing.T) {
	f := &fakeCollaborators{}
	e := baseEvent(TypeRescheduled, "confirmed")
	e.ActorID = "client-1"
	require.NoError(t, newCollaboratorFanout(f).Handle(context.Background(), e))

	assert.Equal(t, []notification{{userID: "prov-1", event: "booking.rescheduled"}}, f.notifications)
	require.Len(t, f.calendar, 1)
	assert.Equal(t, "update", f.calendar[0].Action)
	assert.Len(t, f.scheduled, 1)
}

func TestNotificationPayload(t *testing.T) {
	prev := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	e := baseEvent(TypeRescheduled, "pending")
	e.PreviousStartTime = &prev
	e.Reason = "traffic"

	payload := notificationPayload(e)
	assert.Equal(t, "2024-01-10T14:00:00Z", payload["start_time"])
	assert.Equal(t, "2024-01-10T10:00:00Z", payload["previous_start_time"])
	assert.Equal(t, "traffic", payload["reason"])
	assert.NotContains(t, payload, "refund_fraction")
}
