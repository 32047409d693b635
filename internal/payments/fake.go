package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/booking-engine/internal/events"
	"github.com/wolfman30/booking-engine/internal/pricing"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

// Call is one recorded gateway operation.
type Call struct {
	Op        string
	BookingID string
	Amount    pricing.Money
}

// FakeGateway is a dev gateway that records calls and keeps one
// authorization per booking. It never moves money.
type FakeGateway struct {
	logger *logging.Logger

	mu         sync.Mutex
	calls      []Call
	authorized map[string]pricing.Money
	refunded   map[string]bool
}

func NewFakeGateway(logger *logging.Logger) *FakeGateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeGateway{
		logger:     logger,
		authorized: make(map[string]pricing.Money),
		refunded:   make(map[string]bool),
	}
}

func (g *FakeGateway) Authorize(_ context.Context, bookingID string, amount pricing.Money) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "authorize", BookingID: bookingID, Amount: amount})
	if _, ok := g.authorized[bookingID]; !ok {
		g.authorized[bookingID] = amount
	}
	g.logger.Info("fake gateway: authorized", "booking_id", bookingID, "amount_minor", amount.AmountMinor)
	return nil
}

func (g *FakeGateway) Refund(_ context.Context, bookingID string, amount pricing.Money) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Op: "refund", BookingID: bookingID, Amount: amount})
	held, ok := g.authorized[bookingID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPayment, bookingID)
	}
	if amount.AmountMinor > held.AmountMinor {
		return fmt.Errorf("payments: refund %d exceeds authorized %d", amount.AmountMinor, held.AmountMinor)
	}
	if g.refunded[bookingID] {
		return nil
	}
	g.refunded[bookingID] = true
	g.logger.Info("fake gateway: refunded", "booking_id", bookingID, "amount_minor", amount.AmountMinor)
	return nil
}

// Calls returns every recorded operation in order.
func (g *FakeGateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

var _ events.PaymentGateway = (*FakeGateway)(nil)
