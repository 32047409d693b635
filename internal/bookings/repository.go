package bookings

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository persists bookings. Implementations must index by
// (provider_id, start_time) so ListActive stays cheap.
type Repository interface {
	// Insert stores a new booking with Version 1.
	Insert(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id string) (*Booking, error)
	// Update writes b only if the stored version equals expectedVersion,
	// then sets b.Version to expectedVersion+1.
	Update(ctx context.Context, b *Booking, expectedVersion int64) error
	// ListActive returns pending/confirmed bookings of a provider whose
	// interval may intersect [from, to).
	ListActive(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error)
	// ListForProvider returns bookings of any status starting in [from, to).
	ListForProvider(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error)
	// ListDueForCompletion returns confirmed bookings that ended at or before asOf.
	ListDueForCompletion(ctx context.Context, asOf time.Time, limit int) ([]Booking, error)
	Stats(ctx context.Context, providerID string, asOf time.Time) (*ProviderStats, error)
}

// MemoryRepository keeps bookings in process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	bookings   map[string]*Booking
	references map[string]string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings:   make(map[string]*Booking),
		references: make(map[string]string),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.references[b.Reference]; exists {
		return ErrDuplicateReference
	}
	b.Version = 1
	r.bookings[b.ID] = b.clone()
	r.references[b.Reference] = b.ID
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, b *Booking, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	b.Version = expectedVersion + 1
	r.bookings[b.ID] = b.clone()
	return nil
}

func (r *MemoryRepository) ListActive(_ context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	window := Interval{Start: from, End: to}
	return r.filter(func(b *Booking) bool {
		return b.ProviderID == providerID && b.Status.Active() && b.Interval().Overlaps(window)
	}), nil
}

func (r *MemoryRepository) ListForProvider(_ context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	return r.filter(func(b *Booking) bool {
		return b.ProviderID == providerID && !b.StartTime.Before(from) && b.StartTime.Before(to)
	}), nil
}

func (r *MemoryRepository) ListDueForCompletion(_ context.Context, asOf time.Time, limit int) ([]Booking, error) {
	due := r.filter(func(b *Booking) bool {
		return b.Status == StatusConfirmed && !b.EndTime().After(asOf)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryRepository) Stats(_ context.Context, providerID string, asOf time.Time) (*ProviderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ProviderStats{ProviderID: providerID}
	for _, b := range r.bookings {
		if b.ProviderID != providerID {
			continue
		}
		switch b.Status {
		case StatusPending:
			stats.Pending++
		case StatusConfirmed:
			stats.Confirmed++
			stats.RevenueMinor += b.Price.AmountMinor
		case StatusCompleted:
			stats.Completed++
			stats.RevenueMinor += b.Price.AmountMinor
		case StatusCancelled:
			stats.Cancelled++
			stats.RefundedMinor += b.RefundAmountMinor
		}
		if b.Status.Active() && b.StartTime.After(asOf) {
			stats.Upcoming++
		}
	}
	stats.computeCancellationPct()
	return stats, nil
}

func (s *ProviderStats) computeCancellationPct() {
	total := s.Pending + s.Confirmed + s.Cancelled + s.Completed
	if total > 0 {
		s.CancellationPct = float64(s.Cancelled) / float64(total) * 100
	}
}

// filter returns matching copies ordered by start time.
func (r *MemoryRepository) filter(keep func(*Booking) bool) []Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, *b.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
