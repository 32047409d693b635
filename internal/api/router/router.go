package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/booking-engine/internal/availability"
	"github.com/wolfman30/booking-engine/internal/bookings"
	httpmiddleware "github.com/wolfman30/booking-engine/internal/http/middleware"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	BookingsHandler     *bookings.Handler
	AvailabilityHandler *availability.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// AuthSecret signs actor tokens. Requests without a valid token are
	// rejected when set; tests install their own actor middleware instead.
	AuthSecret    string
	ActorResolver func(http.Handler) http.Handler

	RateLimitRPS   float64
	RateLimitBurst int
	// Done stops background middleware housekeeping.
	Done <-chan struct{}
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(api chi.Router) {
		if cfg.RateLimitRPS > 0 {
			burst := cfg.RateLimitBurst
			if burst <= 0 {
				burst = 1
			}
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, burst, cfg.Done))
		}
		switch {
		case cfg.ActorResolver != nil:
			api.Use(cfg.ActorResolver)
		default:
			api.Use(httpmiddleware.ActorJWT(cfg.AuthSecret))
		}

		if cfg.BookingsHandler != nil {
			api.Route("/bookings", cfg.BookingsHandler.RegisterRoutes)
		}
		api.Route("/providers/{providerID}", func(provider chi.Router) {
			if cfg.AvailabilityHandler != nil {
				cfg.AvailabilityHandler.RegisterRoutes(provider)
			}
			if cfg.BookingsHandler != nil {
				cfg.BookingsHandler.RegisterProviderRoutes(provider)
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
