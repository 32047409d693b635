package bookings

import "fmt"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// validTransitions is the only place lifecycle edges are defined.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCancelled: {},
	StatusCompleted: {},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether s -> target is a legal edge.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Active statuses occupy provider time and take part in conflict checks.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("bookings: unknown status %q", s)
	}
	return status, nil
}

// transition moves b to target or fails with ErrInvalidState.
func transition(b *Booking, target Status) error {
	if !b.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot move booking %s from %s to %s", ErrInvalidState, b.ID, b.Status, target)
	}
	b.Status = target
	return nil
}
