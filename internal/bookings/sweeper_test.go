package bookings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-engine/internal/events"
)

func TestSweeperCompletesElapsedConfirmedBookings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	early := f.create(t, wednesday(9, 0), 60)
	late := f.create(t, wednesday(15, 0), 60)
	pending := f.create(t, wednesday(11, 0), 60)
	for _, b := range []*Booking{early, late} {
		_, err := f.manager.Confirm(ctx, b.ID, providerActor)
		require.NoError(t, err)
	}

	f.clock.Set(wednesday(12, 0))
	sweeper := NewSweeper(f.manager, nil)

	n, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.repo.Get(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = f.repo.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)

	got, err = f.repo.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	n, err = sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep is a no-op")

	var completed []events.BookingEvent
	for _, e := range f.dispatcher.events {
		if e.Type == events.TypeCompleted {
			completed = append(completed, e)
		}
	}
	require.Len(t, completed, 1)
	assert.Equal(t, "system", completed[0].ActorID)
}

func TestSweeperStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t, nil)
	b := f.create(t, wednesday(9, 0), 60)
	_, err := f.manager.Confirm(context.Background(), b.ID, providerActor)
	require.NoError(t, err)
	f.clock.Set(wednesday(12, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSweeper(f.manager, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
