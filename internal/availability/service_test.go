package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceIsWithinAvailability(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)
	require.NoError(t, svc.Save(ctx, mondayNineToFive("prov-1")))

	ok, err := svc.IsWithinAvailability(ctx, "prov-1", monday(10, 0), 60)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsWithinAvailability(ctx, "prov-1", monday(16, 30), 60)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsWithinAvailability(ctx, "unknown", monday(10, 0), 60)
	require.NoError(t, err)
	assert.False(t, ok, "no window means no availability")
}

func TestServiceSaveValidatesAndStamps(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	bad := mondayNineToFive("prov-1")
	bad.Weekly.Monday.Ranges[0].End = "08:00"
	err := svc.Save(ctx, bad)
	assert.True(t, errors.Is(err, ErrInvalidWindow))

	good := mondayNineToFive("prov-1")
	require.NoError(t, svc.Save(ctx, good))
	stored, err := svc.Window(ctx, "prov-1")
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(fixed))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*Window, error) { return nil, errors.New("down") }
func (failingStore) Put(context.Context, *Window) error           { return errors.New("down") }

func TestServicePropagatesStoreErrors(t *testing.T) {
	svc := NewService(failingStore{}, nil)
	_, err := svc.IsWithinAvailability(context.Background(), "prov-1", monday(10, 0), 60)
	assert.Error(t, err)
	assert.Error(t, svc.Save(context.Background(), mondayNineToFive("prov-1")))
}
