package bookings

import (
	"context"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds [start, start+durationMinutes).
func NewInterval(start time.Time, durationMinutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Overlaps is the one conflict predicate: s1 < e2 && s2 < e1.
// It is symmetric, and intervals that merely touch do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Detector finds active bookings that collide with a candidate interval.
type Detector struct {
	repo Repository
}

// NewDetector creates a detector over repo.
func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

// Conflicts returns the provider's pending/confirmed bookings overlapping
// [start, start+durationMinutes), ignoring excludeID.
func (d *Detector) Conflicts(ctx context.Context, providerID string, start time.Time, durationMinutes int, excludeID string) ([]Booking, error) {
	candidate := NewInterval(start, durationMinutes)
	active, err := d.repo.ListActive(ctx, providerID, candidate.Start, candidate.End)
	if err != nil {
		return nil, err
	}
	var conflicts []Booking
	for _, b := range active {
		if b.ID == excludeID || b.ProviderID != providerID || !b.Status.Active() {
			continue
		}
		if b.Interval().Overlaps(candidate) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

// HasConflict reports whether any active booking collides with the candidate.
func (d *Detector) HasConflict(ctx context.Context, providerID string, start time.Time, durationMinutes int, excludeID string) (bool, error) {
	conflicts, err := d.Conflicts(ctx, providerID, start, durationMinutes, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}
