package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-engine/internal/identity"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

const maxWindowBody = 64 << 10

// Handler exposes provider schedule editing over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an availability HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts endpoints under /v1/providers/{providerID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/availability", h.getWindow)
	r.Put("/availability", h.putWindow)
}

func (h *Handler) getWindow(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	window, err := h.service.Window(r.Context(), providerID)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "availability not configured")
		return
	}
	if err != nil {
		h.logger.Error("availability handler: get", "provider_id", providerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (h *Handler) putWindow(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	if actor.ID != providerID && !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "only the provider or an admin may edit availability")
		return
	}

	var window Window
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWindowBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&window); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	window.ProviderID = providerID

	if err := h.service.Save(r.Context(), &window); err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("availability handler: save", "provider_id", providerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, &window)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
