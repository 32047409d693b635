package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

// Service answers availability questions against a Store.
type Service struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires a Store into a Service.
func NewService(store Store, logger *logging.Logger) *Service {
	if store == nil {
		panic("availability: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// IsWithinAvailability reports whether the provider's window admits the
// interval. A provider without a saved window is never available.
func (s *Service) IsWithinAvailability(ctx context.Context, providerID string, start time.Time, durationMinutes int) (bool, error) {
	w, err := s.store.Get(ctx, providerID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return w.IsWithin(start, durationMinutes), nil
}

// Window returns the provider's saved window.
func (s *Service) Window(ctx context.Context, providerID string) (*Window, error) {
	return s.store.Get(ctx, providerID)
}

// Save validates and stores a window, stamping UpdatedAt.
func (s *Service) Save(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, w); err != nil {
		return fmt.Errorf("availability: save: %w", err)
	}
	s.logger.Info("availability window saved", "provider_id", w.ProviderID, "overrides", len(w.Overrides), "vacations", len(w.Vacations))
	return nil
}
