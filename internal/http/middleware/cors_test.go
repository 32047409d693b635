package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		preflight   bool
		wantOrigin  string
		wantStatus  int
		wantHandler bool
	}{
		{name: "listed origin", allowed: []string{"https://app.example"}, origin: "https://app.example",
			method: http.MethodPost, wantOrigin: "https://app.example", wantStatus: http.StatusOK, wantHandler: true},
		{name: "unlisted origin", allowed: []string{"https://app.example"}, origin: "https://evil.example",
			method: http.MethodPost, wantStatus: http.StatusOK, wantHandler: true},
		{name: "wildcard echoes origin", allowed: []string{" * "}, origin: "https://any.example",
			method: http.MethodGet, wantOrigin: "https://any.example", wantStatus: http.StatusOK, wantHandler: true},
		{name: "no origin header", allowed: []string{"*"}, method: http.MethodGet,
			wantStatus: http.StatusOK, wantHandler: true},
		{name: "preflight short-circuits", allowed: []string{"https://app.example"}, origin: "https://app.example",
			method: http.MethodOptions, preflight: true, wantOrigin: "https://app.example", wantStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := CORS(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tt.method, "/v1/bookings", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantHandler, called)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, corsAllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, corsExposeHeaders, rec.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}
