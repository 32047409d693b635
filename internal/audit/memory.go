package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRecorder keeps transitions in process memory.
type MemoryRecorder struct {
	mu          sync.RWMutex
	transitions []Transition
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) RecordTransition(_ context.Context, t Transition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *MemoryRecorder) History(_ context.Context, bookingID string) ([]Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Transition
	for _, t := range r.transitions {
		if t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	return out, nil
}
