package bookings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-engine/internal/identity"
	"github.com/wolfman30/booking-engine/internal/lock"
)

// newTestRouter reads the caller from X-Test-Actor ("id:role").
func newTestRouter(m *Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if raw := req.Header.Get("X-Test-Actor"); raw != "" {
				id, role, _ := strings.Cut(raw, ":")
				req = req.WithContext(identity.WithActor(req.Context(), identity.Actor{ID: id, Role: identity.Role(role)}))
			}
			next.ServeHTTP(w, req)
		})
	})
	h := NewHandler(m, nil)
	r.Route("/v1/bookings", h.RegisterRoutes)
	r.Route("/v1/providers/{providerID}", h.RegisterProviderRoutes)
	return r
}

func do(t *testing.T, router http.Handler, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if actor != "" {
		req.Header.Set("X-Test-Actor", actor)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(f.manager)

	rec := do(t, router, http.MethodPost, "/v1/bookings", "client-1:user",
		`{"provider_id":"prov-1","start_time":"2024-01-10T14:00:00Z","duration_minutes":60}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "client-1", created.ClientID, "client defaults to the caller")
	assert.Equal(t, StatusPending, created.Status)

	rec = do(t, router, http.MethodPost, "/v1/bookings", "client-1:user",
		`{"provider_id":"prov-1","start_time":"2024-01-10T14:30:00Z","duration_minutes":30}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"slot_unavailable"`)

	rec = do(t, router, http.MethodPost, "/v1/bookings/"+created.ID+"/confirm", "client-1:user", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/bookings/"+created.ID+"/confirm", "prov-1:user", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/v1/bookings/"+created.ID+"/reschedule", "client-1:user",
		`{"new_start_time":"2024-01-10T10:00:00Z","reason":"earlier please"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"rescheduled":true`)

	rec = do(t, router, http.MethodGet, "/v1/bookings/"+created.ID, "prov-1:user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"start_time":"2024-01-10T10:00:00Z"`)

	rec = do(t, router, http.MethodPost, "/v1/bookings/"+created.ID+"/cancel", "client-1:user", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/v1/bookings/"+created.ID+"/cancel", "client-1:user", `{"reason":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"invalid_state"`)

	rec = do(t, router, http.MethodGet, "/v1/bookings/missing", "client-1:user", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(f.manager)

	tests := []struct {
		name   string
		actor  string
		body   string
		status int
	}{
		{name: "no actor", body: `{}`, status: http.StatusUnauthorized},
		{name: "unknown field", actor: "client-1:user", body: `{"provider_id":"prov-1","colour":"red"}`, status: http.StatusBadRequest},
		{name: "short duration", actor: "client-1:user", body: `{"provider_id":"prov-1","start_time":"2024-01-10T14:00:00Z","duration_minutes":5}`, status: http.StatusBadRequest},
		{name: "malformed json", actor: "client-1:user", body: `{`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/bookings", tt.actor, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_ResourceBusySetsRetryAfter(t *testing.T) {
	locker := lock.NewMemoryLocker(lock.Options{TTL: time.Minute, MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	f := newFixture(t, locker)
	router := newTestRouter(f.manager)

	lease, err := locker.Acquire(t.Context(), lock.ProviderKey(providerID))
	require.NoError(t, err)
	defer lease.Release(t.Context())

	rec := do(t, router, http.MethodPost, "/v1/bookings", "client-1:user",
		`{"provider_id":"prov-1","start_time":"2024-01-10T14:00:00Z","duration_minutes":60}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestHandler_ProviderReads(t *testing.T) {
	f := newFixture(t, nil)
	f.manager.slotStep = 60
	router := newTestRouter(f.manager)
	f.create(t, wednesday(14, 0), 60)

	rec := do(t, router, http.MethodGet, "/v1/providers/prov-1/availability/check?start=2024-01-10T14:30:00Z&duration=30", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":false}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/v1/providers/prov-1/availability/check?start=2024-01-10T10:00:00Z&duration=60", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/v1/providers/prov-1/availability/check?start=tomorrow&duration=60", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/providers/prov-1/slots?date=2024-01-10&duration=60", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var slots struct {
		Slots []time.Time `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	assert.Len(t, slots.Slots, 7)

	rec = do(t, router, http.MethodGet, "/v1/providers/prov-1/bookings?from=2024-01-10T00:00:00Z&to=2024-01-11T00:00:00Z", "prov-1:user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider_id":"prov-1"`)

	rec = do(t, router, http.MethodGet, "/v1/providers/prov-1/stats", "client-1:user", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/v1/providers/prov-1/stats", "ops:admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":1`)
}
