package availability

import (
	"errors"
	"time"
)

// BusyFunc reports whether [start, end) collides with an existing reservation.
type BusyFunc func(start, end time.Time) bool

// OpenSlots enumerates start times on date (YYYY-MM-DD, provider local) at
// step-minute increments where a durationMinutes interval is inside the
// window and not busy. Results are in UTC and ascending.
func OpenSlots(w *Window, date string, durationMinutes, stepMinutes int, busy BusyFunc) ([]time.Time, error) {
	if w == nil {
		return nil, ErrNotFound
	}
	if durationMinutes <= 0 || stepMinutes <= 0 {
		return nil, errors.New("availability: duration and step must be positive")
	}
	loc := w.Location()
	day, err := ParseDate(date, loc)
	if err != nil {
		return nil, err
	}
	y, m, d := day.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	length := time.Duration(durationMinutes) * time.Minute

	var slots []time.Time
	for offset := 0; offset < endOfDay; offset += stepMinutes {
		start := time.Date(y, m, d, offset/60, offset%60, 0, 0, loc)
		if !start.Before(next) {
			break
		}
		if !w.IsWithin(start, durationMinutes) {
			continue
		}
		if busy != nil && busy(start, start.Add(length)) {
			continue
		}
		slots = append(slots, start.UTC())
	}
	return slots, nil
}
