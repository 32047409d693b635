package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-engine/internal/pricing"
)

func TestFakeGateway(t *testing.T) {
	gw := NewFakeGateway(nil)
	ctx := context.Background()
	usd := func(minor int64) pricing.Money { return pricing.Money{AmountMinor: minor, Currency: "USD"} }

	assert.ErrorIs(t, gw.Refund(ctx, "b-1", usd(100)), ErrNoPayment)

	require.NoError(t, gw.Authorize(ctx, "b-1", usd(10000)))
	require.NoError(t, gw.Authorize(ctx, "b-1", usd(10000)))
	assert.Error(t, gw.Refund(ctx, "b-1", usd(20000)))
	require.NoError(t, gw.Refund(ctx, "b-1", usd(5000)))
	require.NoError(t, gw.Refund(ctx, "b-1", usd(5000)), "repeat refunds are idempotent")

	calls := gw.Calls()
	require.Len(t, calls, 6)
	assert.Equal(t, "authorize", calls[1].Op)
	assert.Equal(t, int64(5000), calls[4].Amount.AmountMinor)
}
