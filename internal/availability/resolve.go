package availability

import "time"

// IsWithin reports whether [start, start+duration) lies inside the window,
// evaluated on the provider's wall clock. Vacations win over overrides, and
// overrides win over the weekly template. The interval must fit inside a
// single configured range and may not cross midnight, except to end exactly
// at a range ending "24:00". Across a daylight-saving change the interval
// is measured by elapsed time, never by a shorter wall-clock span.
func (w *Window) IsWithin(start time.Time, durationMinutes int) bool {
	if w == nil || durationMinutes <= 0 {
		return false
	}
	loc := w.Location()
	local := start.In(loc)
	end := local.Add(time.Duration(durationMinutes) * time.Minute)

	startSec := secondOfDay(local)
	endSec, ok := endSecond(local, end)
	if !ok {
		return false
	}
	// A fall-back transition repeats wall-clock time; the interval still
	// occupies its full elapsed length on the start date's clock.
	if elapsed := startSec + durationMinutes*60; endSec < elapsed {
		endSec = elapsed
	}

	date := local.Format(dateLayout)
	if w.onVacation(date) {
		return false
	}
	ranges, ok := w.rangesFor(date, local.Weekday())
	if !ok {
		return false
	}
	for _, r := range ranges {
		if r.start*60 <= startSec && endSec <= r.end*60 {
			return true
		}
	}
	return false
}

func (w *Window) onVacation(date string) bool {
	for _, v := range w.Vacations {
		if v.StartDate <= date && date <= v.EndDate {
			return true
		}
	}
	return false
}

// rangesFor returns the effective ranges of a date; ok is false when the
// date is closed.
func (w *Window) rangesFor(date string, weekday time.Weekday) ([]minuteRange, bool) {
	for _, o := range w.Overrides {
		if o.Date != date {
			continue
		}
		if !o.Available {
			return nil, false
		}
		if len(o.Ranges) == 0 {
			return []minuteRange{{start: 0, end: endOfDay}}, true
		}
		return parseAll(o.Ranges)
	}
	day := w.Weekly.ForDay(weekday)
	if day == nil || !day.Enabled {
		return nil, false
	}
	return parseAll(day.Ranges)
}

func parseAll(ranges []TimeRange) ([]minuteRange, bool) {
	out := make([]minuteRange, 0, len(ranges))
	for _, r := range ranges {
		mr, err := r.minutes()
		if err != nil {
			continue
		}
		out = append(out, mr)
	}
	return out, len(out) > 0
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// endSecond maps the interval end onto the start date's clock. An end of
// exactly midnight on the following date becomes 24:00.
func endSecond(start, end time.Time) (int, bool) {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		sec := secondOfDay(end)
		if end.Nanosecond() > 0 {
			sec++
		}
		return sec, true
	}
	next := time.Date(sy, sm, sd+1, 0, 0, 0, 0, start.Location())
	if end.Equal(next) {
		return endOfDay * 60, true
	}
	return 0, false
}
