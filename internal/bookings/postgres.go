package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes mapped onto domain errors.
const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores bookings in the bookings table. The table's
// exclusion constraint backs the lock: overlapping active rows for one
// provider are rejected with ErrSlotUnavailable.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a repository over a pgx pool or connection.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("bookings: pgx db required")
	}
	return &PostgresRepository{db: db}
}

const bookingColumns = `id, reference, provider_id, client_id, service_id, start_time, duration_minutes, status,
	price_minor, currency, extras, notes, created_at, updated_at, confirmed_at, completed_at,
	cancelled_at, cancelled_by, cancellation_reason, refund_fraction, refund_amount_minor,
	rescheduled, reschedule_reason, version`

func (r *PostgresRepository) Insert(ctx context.Context, b *Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, reference, provider_id, client_id, service_id, start_time, end_time, duration_minutes,
			status, price_minor, currency, extras, notes, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)`,
		b.ID, b.Reference, b.ProviderID, b.ClientID, b.ServiceID, b.StartTime, b.EndTime(), b.DurationMinutes,
		string(b.Status), b.Price.AmountMinor, b.Price.Currency, nonNilExtras(b.Extras), b.Notes, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("bookings: insert: %w", mapPgError(err))
	}
	b.Version = 1
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	defer rows.Close()
	list, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *Booking, expectedVersion int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings SET
			start_time = $1, end_time = $2, status = $3, updated_at = $4,
			confirmed_at = $5, completed_at = $6, cancelled_at = $7, cancelled_by = $8,
			cancellation_reason = $9, refund_fraction = $10, refund_amount_minor = $11,
			rescheduled = $12, reschedule_reason = $13, version = version + 1
		WHERE id = $14 AND version = $15`,
		b.StartTime, b.EndTime(), string(b.Status), b.UpdatedAt,
		b.ConfirmedAt, b.CompletedAt, b.CancelledAt, b.CancelledBy,
		b.CancellationReason, b.RefundFraction, b.RefundAmountMinor,
		b.Rescheduled, b.RescheduleReason, b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("bookings: update: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, b.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	b.Version = expectedVersion + 1
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND status IN ('pending', 'confirmed')
			AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("bookings: list active: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PostgresRepository) ListForProvider(ctx context.Context, providerID string, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("bookings: list for provider: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PostgresRepository) ListDueForCompletion(ctx context.Context, asOf time.Time, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'confirmed' AND end_time <= $1
		ORDER BY end_time ASC LIMIT $2`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list due: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *PostgresRepository) Stats(ctx context.Context, providerID string, asOf time.Time) (*ProviderStats, error) {
	row := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status IN ('pending', 'confirmed') AND start_time > $2) AS upcoming,
			COALESCE(SUM(price_minor) FILTER (WHERE status IN ('confirmed', 'completed')), 0) AS revenue,
			COALESCE(SUM(refund_amount_minor) FILTER (WHERE status = 'cancelled'), 0) AS refunded
		FROM bookings
		WHERE provider_id = $1`, providerID, asOf)

	stats := ProviderStats{ProviderID: providerID}
	err := row.Scan(&stats.Pending, &stats.Confirmed, &stats.Cancelled, &stats.Completed,
		&stats.Upcoming, &stats.RevenueMinor, &stats.RefundedMinor)
	if err != nil {
		return nil, fmt.Errorf("bookings: stats: %w", err)
	}
	stats.computeCancellationPct()
	return &stats, nil
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		var b Booking
		var status string
		err := rows.Scan(
			&b.ID, &b.Reference, &b.ProviderID, &b.ClientID, &b.ServiceID,
			&b.StartTime, &b.DurationMinutes, &status,
			&b.Price.AmountMinor, &b.Price.Currency, &b.Extras, &b.Notes,
			&b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt, &b.CompletedAt,
			&b.CancelledAt, &b.CancelledBy, &b.CancellationReason, &b.RefundFraction, &b.RefundAmountMinor,
			&b.Rescheduled, &b.RescheduleReason, &b.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		b.Status = Status(status)
		if len(b.Extras) == 0 {
			b.Extras = nil
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate bookings: %w", err)
	}
	return result, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgExclusionViolation:
		return fmt.Errorf("%w: %s", ErrSlotUnavailable, pgErr.ConstraintName)
	case pgUniqueViolation:
		if pgErr.ConstraintName == "bookings_reference_key" {
			return ErrDuplicateReference
		}
	}
	return err
}

func nonNilExtras(extras []string) []string {
	if extras == nil {
		return []string{}
	}
	return extras
}
