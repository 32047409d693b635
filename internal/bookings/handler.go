package bookings

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-engine/internal/identity"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

const (
	maxRequestBody    = 64 << 10
	retryAfterSeconds = "1"
)

// Handler exposes the lifecycle manager over HTTP.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

// NewHandler creates a bookings HTTP handler.
func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes mounts booking endpoints under /v1/bookings.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{bookingID}", h.get)
	r.Post("/{bookingID}/confirm", h.confirm)
	r.Post("/{bookingID}/cancel", h.cancel)
	r.Post("/{bookingID}/reschedule", h.reschedule)
	r.Post("/{bookingID}/complete", h.complete)
}

// RegisterProviderRoutes mounts read endpoints under /v1/providers/{providerID}.
func (h *Handler) RegisterProviderRoutes(r chi.Router) {
	r.Get("/bookings", h.listForProvider)
	r.Get("/stats", h.stats)
	r.Get("/availability/check", h.checkAvailability)
	r.Get("/slots", h.slots)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.ClientID == "" && !actor.IsAdmin() && !actor.IsSystem() {
		req.ClientID = actor.ID
	}
	b, err := h.manager.Create(r.Context(), actor, req)
	if err != nil {
		h.writeFailure(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	b, err := h.manager.Get(r.Context(), chi.URLParam(r, "bookingID"), actor)
	if err != nil {
		h.writeFailure(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	b, err := h.manager.Confirm(r.Context(), chi.URLParam(r, "bookingID"), actor)
	if err != nil {
		h.writeFailure(w, "confirm", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	b, err := h.manager.Cancel(r.Context(), chi.URLParam(r, "bookingID"), actor, req)
	if err != nil {
		h.writeFailure(w, "cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	b, err := h.manager.Reschedule(r.Context(), chi.URLParam(r, "bookingID"), actor, req)
	if err != nil {
		h.writeFailure(w, "reschedule", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	b, err := h.manager.Complete(r.Context(), chi.URLParam(r, "bookingID"), actor)
	if err != nil {
		h.writeFailure(w, "complete", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) listForProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	from, err := parseTimeParam(r, "from")
	if err != nil {
		h.writeFailure(w, "list", err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		h.writeFailure(w, "list", err)
		return
	}
	list, err := h.manager.ListForProvider(r.Context(), actor, chi.URLParam(r, "providerID"), from, to)
	if err != nil {
		h.writeFailure(w, "list", err)
		return
	}
	if list == nil {
		list = []Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	stats, err := h.manager.ProviderStats(r.Context(), actor, chi.URLParam(r, "providerID"))
	if err != nil {
		h.writeFailure(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		h.writeFailure(w, "check_availability", err)
		return
	}
	duration, err := parseIntParam(r, "duration")
	if err != nil {
		h.writeFailure(w, "check_availability", err)
		return
	}
	available, err := h.manager.CheckAvailability(r.Context(), chi.URLParam(r, "providerID"), start, duration)
	if err != nil {
		h.writeFailure(w, "check_availability", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) slots(w http.ResponseWriter, r *http.Request) {
	duration, err := parseIntParam(r, "duration")
	if err != nil {
		h.writeFailure(w, "slots", err)
		return
	}
	slots, err := h.manager.OpenSlots(r.Context(), chi.URLParam(r, "providerID"), r.URL.Query().Get("date"), duration)
	if err != nil {
		h.writeFailure(w, "slots", err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// writeFailure maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeFailure(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrInvalidState):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, ErrResourceBusy):
		w.Header().Set("Retry-After", retryAfterSeconds)
		status, message = http.StatusServiceUnavailable, "provider is busy, retry shortly"
	case errors.Is(err, ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNotFound):
		status, message = http.StatusNotFound, "booking not found"
	default:
		h.logger.Error("bookings handler: "+op, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": message, "code": Classify(err)})
}

func requireActor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing actor"})
	}
	return actor, ok
}

// decodeBody reads a fixed request struct. optional bodies may be empty.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error(), "code": "validation"})
		return false
	}
	return true
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, invalid(name, "is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, invalid(name, "must be RFC3339")
	}
	return t, nil
}

func parseIntParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, invalid(name, "is required")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(name, "must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
