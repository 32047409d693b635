// Package audit keeps an append-only trail of booking state transitions.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transition is one committed lifecycle change.
type Transition struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Recorder writes transitions to booking_transitions.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a recorder over a database/sql handle.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordTransition appends a transition row.
func (r *Recorder) RecordTransition(ctx context.Context, t Transition) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}

	query := `
		INSERT INTO booking_transitions (
			id, booking_id, from_status, to_status, actor_id, actor_role, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.BookingID,
		nullString(t.From),
		t.To,
		t.ActorID,
		t.ActorRole,
		nullString(t.Reason),
		t.At,
	)
	if err != nil {
		return fmt.Errorf("audit: record transition: %w", err)
	}
	return nil
}

// History returns a booking's transitions, oldest first.
func (r *Recorder) History(ctx context.Context, bookingID string) ([]Transition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_id, actor_role, reason, created_at
		FROM booking_transitions
		WHERE booking_id = $1
		ORDER BY created_at ASC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("audit: query history: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var from, reason sql.NullString
		if err := rows.Scan(&t.ID, &t.BookingID, &from, &t.To, &t.ActorID, &t.ActorRole, &reason, &t.At); err != nil {
			return nil, fmt.Errorf("audit: scan transition: %w", err)
		}
		t.From = from.String
		t.Reason = reason.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate history: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
