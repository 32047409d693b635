// Package availability stores provider schedules and answers whether a
// candidate interval falls inside them.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
	endOfDay    = 24 * 60
)

var (
	// ErrNotFound is returned when a provider has never saved a schedule.
	ErrNotFound = errors.New("availability: window not found")
	// ErrInvalidWindow wraps every schedule validation failure.
	ErrInvalidWindow = errors.New("availability: invalid window")
)

// TimeRange is a clock-time range in the provider's timezone, "HH:mm".
// "24:00" is accepted as an end only.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule is one weekday entry of the weekly template.
type DaySchedule struct {
	Enabled bool        `json:"enabled"`
	Ranges  []TimeRange `json:"ranges"`
}

// WeeklySchedule maps day names to their schedule. A nil day is closed.
type WeeklySchedule struct {
	Monday    *DaySchedule `json:"monday,omitempty"`
	Tuesday   *DaySchedule `json:"tuesday,omitempty"`
	Wednesday *DaySchedule `json:"wednesday,omitempty"`
	Thursday  *DaySchedule `json:"thursday,omitempty"`
	Friday    *DaySchedule `json:"friday,omitempty"`
	Saturday  *DaySchedule `json:"saturday,omitempty"`
	Sunday    *DaySchedule `json:"sunday,omitempty"`
}

// Override replaces the weekly template for one calendar date.
// An available override without ranges opens the whole day.
type Override struct {
	Date      string      `json:"date"`
	Available bool        `json:"available"`
	Ranges    []TimeRange `json:"ranges,omitempty"`
}

// Vacation closes every date from StartDate through EndDate inclusive.
type Vacation struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Window is a provider's complete availability definition.
type Window struct {
	ProviderID string         `json:"provider_id"`
	Timezone   string         `json:"timezone,omitempty"`
	Weekly     WeeklySchedule `json:"weekly"`
	Overrides  []Override     `json:"overrides,omitempty"`
	Vacations  []Vacation     `json:"vacations,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ForDay returns the template entry for weekday, or nil when none is set.
func (w *WeeklySchedule) ForDay(weekday time.Weekday) *DaySchedule {
	switch weekday {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	default:
		return nil
	}
}

// Location resolves the window's timezone, defaulting to UTC.
func (w *Window) Location() *time.Location {
	if w == nil || strings.TrimSpace(w.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the window for structural errors.
func (w *Window) Validate() error {
	if w == nil {
		return fmt.Errorf("%w: window is required", ErrInvalidWindow)
	}
	if strings.TrimSpace(w.ProviderID) == "" {
		return fmt.Errorf("%w: provider_id is required", ErrInvalidWindow)
	}
	if tz := strings.TrimSpace(w.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidWindow, tz, err)
		}
	}
	days := []struct {
		name string
		day  *DaySchedule
	}{
		{"monday", w.Weekly.Monday},
		{"tuesday", w.Weekly.Tuesday},
		{"wednesday", w.Weekly.Wednesday},
		{"thursday", w.Weekly.Thursday},
		{"friday", w.Weekly.Friday},
		{"saturday", w.Weekly.Saturday},
		{"sunday", w.Weekly.Sunday},
	}
	for _, d := range days {
		if d.day == nil {
			continue
		}
		if err := validateRanges("weekly."+d.name, d.day.Ranges); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{}, len(w.Overrides))
	for i, o := range w.Overrides {
		field := fmt.Sprintf("overrides[%d]", i)
		if _, err := time.Parse(dateLayout, o.Date); err != nil {
			return fmt.Errorf("%w: %s.date %q is not YYYY-MM-DD", ErrInvalidWindow, field, o.Date)
		}
		if _, dup := seen[o.Date]; dup {
			return fmt.Errorf("%w: %s.date %s is duplicated", ErrInvalidWindow, field, o.Date)
		}
		seen[o.Date] = struct{}{}
		if !o.Available && len(o.Ranges) > 0 {
			return fmt.Errorf("%w: %s has ranges but is unavailable", ErrInvalidWindow, field)
		}
		if err := validateRanges(field, o.Ranges); err != nil {
			return err
		}
	}
	for i, v := range w.Vacations {
		field := fmt.Sprintf("vacations[%d]", i)
		start, err := time.Parse(dateLayout, v.StartDate)
		if err != nil {
			return fmt.Errorf("%w: %s.start_date %q is not YYYY-MM-DD", ErrInvalidWindow, field, v.StartDate)
		}
		end, err := time.Parse(dateLayout, v.EndDate)
		if err != nil {
			return fmt.Errorf("%w: %s.end_date %q is not YYYY-MM-DD", ErrInvalidWindow, field, v.EndDate)
		}
		if end.Before(start) {
			return fmt.Errorf("%w: %s ends before it starts", ErrInvalidWindow, field)
		}
	}
	return nil
}

type minuteRange struct {
	start, end int
}

func validateRanges(field string, ranges []TimeRange) error {
	parsed := make([]minuteRange, 0, len(ranges))
	for i, r := range ranges {
		mr, err := r.minutes()
		if err != nil {
			return fmt.Errorf("%w: %s.ranges[%d]: %v", ErrInvalidWindow, field, i, err)
		}
		parsed = append(parsed, mr)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })
	for i := 1; i < len(parsed); i++ {
		if parsed[i].start < parsed[i-1].end {
			return fmt.Errorf("%w: %s has overlapping ranges", ErrInvalidWindow, field)
		}
	}
	return nil
}

func (r TimeRange) minutes() (minuteRange, error) {
	start, err := parseClock(r.Start, false)
	if err != nil {
		return minuteRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseClock(r.End, true)
	if err != nil {
		return minuteRange{}, fmt.Errorf("end: %w", err)
	}
	if start >= end {
		return minuteRange{}, fmt.Errorf("start %s must precede end %s", r.Start, r.End)
	}
	return minuteRange{start: start, end: end}, nil
}

// parseClock converts "HH:mm" to minutes after midnight.
func parseClock(value string, allowEndOfDay bool) (int, error) {
	value = strings.TrimSpace(value)
	if value == "24:00" {
		if !allowEndOfDay {
			return 0, errors.New("24:00 is only valid as a range end")
		}
		return endOfDay, nil
	}
	t, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:mm", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: date %q: %w", value, err)
	}
	return t, nil
}
