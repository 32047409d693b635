package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/booking-engine/internal/events"
	"github.com/wolfman30/booking-engine/internal/pricing"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

var stripeTracer = otel.Tracer("booking.internal.payments.stripe")

// ErrNoPayment is returned when a refund finds no payment for the booking.
var ErrNoPayment = errors.New("payments: no payment for booking")

// StripeGateway authorizes booking prices as manual-capture PaymentIntents
// and refunds them. Every call carries an idempotency key derived from the
// booking id, so outbox redelivery never charges or refunds twice.
type StripeGateway struct {
	api    *client.API
	logger *logging.Logger
}

// NewStripeGateway returns nil when no secret key is configured.
func NewStripeGateway(secretKey string, logger *logging.Logger) *StripeGateway {
	if strings.TrimSpace(secretKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeGateway{api: client.New(secretKey, nil), logger: logger}
}

// WithBaseURL points the client at another API host (for testing).
func (g *StripeGateway) WithBaseURL(secretKey, baseURL string) *StripeGateway {
	if baseURL == "" {
		return g
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(baseURL, "/")),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})
	g.api = client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return g
}

// Authorize places a hold for amount against the booking.
func (g *StripeGateway) Authorize(ctx context.Context, bookingID string, amount pricing.Money) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.authorize")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", bookingID), attribute.Int64("booking.amount_minor", amount.AmountMinor))

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount.AmountMinor),
		Currency:      stripe.String(strings.ToLower(amount.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String("Booking " + bookingID),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", bookingID)
	params.SetIdempotencyKey("authorize-" + bookingID)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("payments: stripe authorize %s: %w", bookingID, err)
	}
	g.logger.Info("stripe payment intent created", "booking_id", bookingID, "payment_intent", intent.ID, "status", intent.Status)
	return nil
}

// Refund returns amount to the client. An intent that was never captured
// is cancelled instead, which releases the hold.
func (g *StripeGateway) Refund(ctx context.Context, bookingID string, amount pricing.Money) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.refund")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", bookingID), attribute.Int64("booking.amount_minor", amount.AmountMinor))

	intent, err := g.findIntent(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(intent.ID),
			Amount:        stripe.Int64(amount.AmountMinor),
		}
		params.Context = ctx
		params.AddMetadata("booking_id", bookingID)
		params.SetIdempotencyKey("refund-" + bookingID)
		refund, err := g.api.Refunds.New(params)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("payments: stripe refund %s: %w", bookingID, err)
		}
		g.logger.Info("stripe refund created", "booking_id", bookingID, "refund", refund.ID, "amount_minor", amount.AmountMinor)
	case stripe.PaymentIntentStatusCanceled:
		g.logger.Debug("stripe payment intent already cancelled", "booking_id", bookingID, "payment_intent", intent.ID)
	default:
		params := &stripe.PaymentIntentCancelParams{}
		params.Context = ctx
		params.SetIdempotencyKey("refund-" + bookingID)
		if _, err := g.api.PaymentIntents.Cancel(intent.ID, params); err != nil {
			span.RecordError(err)
			return fmt.Errorf("payments: stripe cancel %s: %w", bookingID, err)
		}
		g.logger.Info("stripe hold released", "booking_id", bookingID, "payment_intent", intent.ID)
	}
	return nil
}

func (g *StripeGateway) findIntent(ctx context.Context, bookingID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentSearchParams{}
	params.Context = ctx
	params.Query = fmt.Sprintf("metadata['booking_id']:'%s'", bookingID)

	iter := g.api.PaymentIntents.Search(params)
	if iter.Next() {
		return iter.PaymentIntent(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("payments: stripe search %s: %w", bookingID, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPayment, bookingID)
}

var _ events.PaymentGateway = (*StripeGateway)(nil)
