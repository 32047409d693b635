package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

const defaultMaxAttempts = 10

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OutboxEntry is a stored event awaiting delivery.
type OutboxEntry struct {
	ID        uuid.UUID
	BookingID string
	Type      Type
	Payload   json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// OutboxStore persists events for reliable delivery. It implements Dispatcher.
type OutboxStore struct {
	db DB
}

func NewOutboxStore(db DB) *OutboxStore {
	if db == nil {
		panic("events: pgx db required")
	}
	return &OutboxStore{db: db}
}

// Dispatch stores the event; the Deliverer hands it to sinks later.
func (s *OutboxStore) Dispatch(ctx context.Context, event BookingEvent) error {
	_, err := s.Insert(ctx, event)
	return err
}

func (s *OutboxStore) Insert(ctx context.Context, event BookingEvent) (uuid.UUID, error) {
	id, err := uuid.Parse(event.EventID)
	if err != nil {
		id = uuid.New()
		event.EventID = id.String()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	query := `
		INSERT INTO outbox (id, booking_id, type, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, query, id, event.BookingID, string(event.Type), data); err != nil {
		return uuid.Nil, fmt.Errorf("events: insert outbox: %w", err)
	}
	return id, nil
}

func (s *OutboxStore) FetchPending(ctx context.Context, limit int32, maxAttempts int) ([]OutboxEntry, error) {
	query := `
		SELECT id, booking_id, type, payload, attempts, created_at
		FROM outbox
		WHERE delivered_at IS NULL AND attempts < $2
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var eventType string
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.BookingID, &eventType, &payload, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan outbox: %w", err)
		}
		entry.Type = Type(eventType)
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	query := `
		UPDATE outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1 AND delivered_at IS NULL
	`
	if _, err := s.db.Exec(ctx, query, id, cause.Error()); err != nil {
		return fmt.Errorf("events: mark failed: %w", err)
	}
	return nil
}

// Deliverer polls the outbox and invokes the handler.
type Deliverer struct {
	store       *OutboxStore
	handler     Handler
	logger      *logging.Logger
	batchSize   int32
	interval    time.Duration
	maxAttempts int
}

func NewDeliverer(store *OutboxStore, handler Handler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:       store,
		handler:     handler,
		logger:      logger,
		batchSize:   25,
		interval:    2 * time.Second,
		maxAttempts: defaultMaxAttempts,
	}
}

func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) WithMaxAttempts(n int) *Deliverer {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Deliverer) Start(ctx context.Context) {
	if d.store == nil || d.handler == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain delivers one batch and returns how many entries were delivered.
func (d *Deliverer) Drain(ctx context.Context) int {
	entries, err := d.store.FetchPending(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return 0
	}
	delivered := 0
	for _, entry := range entries {
		var event BookingEvent
		if err := json.Unmarshal(entry.Payload, &event); err != nil {
			d.logger.Error("outbox payload undecodable", "error", err, "event_id", entry.ID, "type", entry.Type)
			d.markFailed(ctx, entry, err)
			continue
		}
		if err := d.handler.Handle(ctx, event); err != nil {
			d.logger.Error("outbox delivery failed", "error", err, "event_id", entry.ID, "type", entry.Type, "attempts", entry.Attempts+1)
			d.markFailed(ctx, entry, err)
			continue
		}
		if ok, err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", entry.ID)
		} else if ok {
			delivered++
			d.logger.Debug("outbox delivered", "event_id", entry.ID, "type", entry.Type, "booking_id", entry.BookingID)
		}
	}
	return delivered
}

func (d *Deliverer) markFailed(ctx context.Context, entry OutboxEntry, cause error) {
	if err := d.store.MarkFailed(ctx, entry.ID, cause); err != nil {
		d.logger.Error("failed to record outbox failure", "error", err, "event_id", entry.ID)
	}
}

// InlineDispatcher hands events straight to a handler. Used when no outbox
// table is available; delivery is then best-effort.
type InlineDispatcher struct {
	handler Handler
}

func NewInlineDispatcher(handler Handler) *InlineDispatcher {
	return &InlineDispatcher{handler: handler}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, event BookingEvent) error {
	if d == nil || d.handler == nil {
		return nil
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return d.handler.Handle(ctx, event)
}
