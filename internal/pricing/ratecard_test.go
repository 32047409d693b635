package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

func TestMemoryRateCard(t *testing.T) {
	card := NewMemoryRateCard()
	require.NoError(t, card.Set("prov-1", "", Money{AmountMinor: 8000, Currency: "usd"}))
	require.NoError(t, card.Set("prov-1", "massage", usd(12000)))
	assert.Error(t, card.Set("prov-1", "x", Money{AmountMinor: 1, Currency: "XYZ"}))

	ctx := context.Background()
	rate, err := card.Rate(ctx, "prov-1", "massage")
	require.NoError(t, err)
	assert.Equal(t, usd(12000), rate)

	rate, err = card.Rate(ctx, "prov-1", "facial")
	require.NoError(t, err)
	assert.Equal(t, usd(8000), rate, "falls back to default")

	rate, err = card.Rate(ctx, "prov-1", "")
	require.NoError(t, err)
	assert.Equal(t, usd(8000), rate)

	_, err = card.Rate(ctx, "prov-2", "massage")
	assert.True(t, errors.Is(err, ErrNoRate))
}

func TestRedisRateCard(t *testing.T) {
	card := NewRedisRateCard(setupTestRedis(t))
	ctx := context.Background()

	_, err := card.Rate(ctx, "prov-1", "massage")
	assert.True(t, errors.Is(err, ErrNoRate))

	require.NoError(t, card.Set(ctx, "prov-1", "", Money{AmountMinor: 5000, Currency: "gbp"}))
	rate, err := card.Rate(ctx, "prov-1", "massage")
	require.NoError(t, err)
	assert.Equal(t, Money{AmountMinor: 5000, Currency: "GBP"}, rate)

	require.NoError(t, card.Set(ctx, "prov-1", "massage", Money{AmountMinor: 7000, Currency: "GBP"}))
	rate, err = card.Rate(ctx, "prov-1", "massage")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), rate.AmountMinor)

	rate, err = card.Rate(ctx, "prov-1", DefaultService)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), rate.AmountMinor)
}

func TestFallbackRateCard(t *testing.T) {
	inner := NewMemoryRateCard()
	require.NoError(t, inner.Set("prov-1", "", usd(9000)))
	card := FallbackRateCard{Card: inner, Default: usd(5000)}

	ctx := context.Background()
	rate, err := card.Rate(ctx, "prov-1", "")
	require.NoError(t, err)
	assert.Equal(t, usd(9000), rate)

	rate, err = card.Rate(ctx, "prov-2", "")
	require.NoError(t, err)
	assert.Equal(t, usd(5000), rate)

	_, err = FallbackRateCard{Card: inner}.Rate(ctx, "prov-2", "")
	assert.ErrorIs(t, err, ErrNoRate)
}
