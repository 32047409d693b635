package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-engine/internal/pricing"
)

type stripeRequest struct {
	method         string
	path           string
	idempotencyKey string
	form           map[string][]string
	query          string
}

type stubStripe struct {
	mu       sync.Mutex
	requests []stripeRequest
	status   string
	found    bool
}

func (s *stubStripe) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = r.ParseForm()
		s.mu.Lock()
		s.requests = append(s.requests, stripeRequest{
			method:         r.Method,
			path:           r.URL.Path,
			idempotencyKey: r.Header.Get("Idempotency-Key"),
			form:           r.PostForm,
			query:          r.URL.Query().Get("query"),
		})
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/payment_intents":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "pi_123", "object": "payment_intent", "status": "requires_payment_method"})
		case "/v1/payment_intents/search":
			data := []any{}
			if s.found {
				data = append(data, map[string]any{"id": "pi_123", "object": "payment_intent", "status": s.status})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "search_result", "data": data, "has_more": false})
		case "/v1/refunds":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "re_123", "object": "refund", "status": "succeeded"})
		case "/v1/payment_intents/pi_123/cancel":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "pi_123", "object": "payment_intent", "status": "canceled"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestGateway(t *testing.T, stub *stubStripe) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)
	return NewStripeGateway("sk_test_123", nil).WithBaseURL("sk_test_123", srv.URL)
}

func TestStripeGateway_Authorize(t *testing.T) {
	stub := &stubStripe{}
	gw := newTestGateway(t, stub)

	err := gw.Authorize(context.Background(), "b-1", pricing.Money{AmountMinor: 10000, Currency: "USD"})
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "authorize-b-1", req.idempotencyKey)
	assert.Equal(t, []string{"10000"}, req.form["amount"])
	assert.Equal(t, []string{"usd"}, req.form["currency"])
	assert.Equal(t, []string{"manual"}, req.form["capture_method"])
	assert.Equal(t, []string{"b-1"}, req.form["metadata[booking_id]"])
}

func TestStripeGateway_RefundCapturedPayment(t *testing.T) {
	stub := &stubStripe{found: true, status: "succeeded"}
	gw := newTestGateway(t, stub)

	err := gw.Refund(context.Background(), "b-1", pricing.Money{AmountMinor: 9000, Currency: "USD"})
	require.NoError(t, err)

	require.Len(t, stub.requests, 2)
	assert.Equal(t, "metadata['booking_id']:'b-1'", stub.requests[0].query)
	assert.Equal(t, "/v1/refunds", stub.requests[1].path)
	assert.Equal(t, "refund-b-1", stub.requests[1].idempotencyKey)
	assert.Equal(t, []string{"9000"}, stub.requests[1].form["amount"])
	assert.Equal(t, []string{"pi_123"}, stub.requests[1].form["payment_intent"])
}

func TestStripeGateway_RefundUncapturedReleasesHold(t *testing.T) {
	stub := &stubStripe{found: true, status: "requires_capture"}
	gw := newTestGateway(t, stub)

	require.NoError(t, gw.Refund(context.Background(), "b-1", pricing.Money{AmountMinor: 9000, Currency: "USD"}))
	require.Len(t, stub.requests, 2)
	assert.Equal(t, "/v1/payment_intents/pi_123/cancel", stub.requests[1].path)
}

func TestStripeGateway_RefundWithoutPayment(t *testing.T) {
	gw := newTestGateway(t, &stubStripe{})

	err := gw.Refund(context.Background(), "b-1", pricing.Money{AmountMinor: 9000, Currency: "USD"})
	assert.True(t, errors.Is(err, ErrNoPayment), "got %v", err)
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	assert.Nil(t, NewStripeGateway(" ", nil))
}
