package bookings

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 7 * 24 * 60
	MaxNotesLength     = 1000
	MaxExtras          = 10
	maxReasonLength    = 500
)

// CreateRequest is the input of Manager.Create.
type CreateRequest struct {
	ProviderID      string    `json:"provider_id"`
	ClientID        string    `json:"client_id"`
	ServiceID       string    `json:"service_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Extras          []string  `json:"extras,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// CancelRequest is the body of a cancellation.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RescheduleRequest is the body of a reschedule.
type RescheduleRequest struct {
	NewStartTime time.Time `json:"new_start_time"`
	Reason       string    `json:"reason,omitempty"`
}

// Validate checks field shapes and normalizes whitespace. now is the
// reference instant for the must-be-in-the-future rule.
func (r *CreateRequest) Validate(now time.Time) error {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.ServiceID = strings.TrimSpace(r.ServiceID)
	r.Notes = strings.TrimSpace(r.Notes)

	switch {
	case r.ProviderID == "":
		return invalid("provider_id", "is required")
	case r.ClientID == "":
		return invalid("client_id", "is required")
	case r.ProviderID == r.ClientID:
		return invalid("client_id", "must differ from provider_id")
	}
	if err := validateDuration(r.DurationMinutes); err != nil {
		return err
	}
	if err := validateStart("start_time", r.StartTime, now); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Notes) > MaxNotesLength {
		return invalid("notes", "exceeds 1000 characters")
	}
	extras, err := normalizeExtras(r.Extras)
	if err != nil {
		return err
	}
	r.Extras = extras
	return nil
}

// Validate checks the reschedule target and reason.
func (r *RescheduleRequest) Validate(now time.Time) error {
	r.Reason = strings.TrimSpace(r.Reason)
	if err := validateStart("new_start_time", r.NewStartTime, now); err != nil {
		return err
	}
	return validateReason(r.Reason)
}

// Validate checks the cancellation reason.
func (r *CancelRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return validateReason(r.Reason)
}

func validateDuration(minutes int) error {
	if minutes < MinDurationMinutes {
		return invalid("duration_minutes", "must be at least 15")
	}
	if minutes > MaxDurationMinutes {
		return invalid("duration_minutes", "must be at most 10080")
	}
	return nil
}

func validateStart(field string, start, now time.Time) error {
	if start.IsZero() {
		return invalid(field, "is required")
	}
	if !start.After(now) {
		return invalid(field, "must be in the future")
	}
	return nil
}

func validateReason(reason string) error {
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return invalid("reason", "exceeds 500 characters")
	}
	return nil
}

// normalizeExtras trims ids and rejects blanks, duplicates and overlong lists.
func normalizeExtras(extras []string) ([]string, error) {
	if len(extras) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(extras))
	out := make([]string, 0, len(extras))
	for _, e := range extras {
		e = strings.TrimSpace(e)
		if e == "" {
			return nil, invalid("extras", "contains an empty id")
		}
		if _, dup := seen[e]; dup {
			return nil, invalid("extras", "contains duplicate id "+e)
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	if len(out) > MaxExtras {
		return nil, invalid("extras", "at most 10 extras are allowed")
	}
	return out, nil
}
