package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/booking-engine/internal/audit"
	"github.com/wolfman30/booking-engine/internal/availability"
	"github.com/wolfman30/booking-engine/internal/events"
	"github.com/wolfman30/booking-engine/internal/identity"
	"github.com/wolfman30/booking-engine/internal/lock"
	"github.com/wolfman30/booking-engine/internal/observability/metrics"
	"github.com/wolfman30/booking-engine/internal/pricing"
	"github.com/wolfman30/booking-engine/internal/refund"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

var bookingsTracer = otel.Tracer("booking.internal.bookings")

const (
	referenceAttempts = 3
	defaultSlotStep   = 15
	maxListRange      = 93 * 24 * time.Hour
	postCommitTimeout = 10 * time.Second
)

// WindowSource answers availability for a provider.
type WindowSource interface {
	IsWithinAvailability(ctx context.Context, providerID string, start time.Time, durationMinutes int) (bool, error)
	Window(ctx context.Context, providerID string) (*availability.Window, error)
}

// TransitionRecorder appends lifecycle changes to the audit trail.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, t audit.Transition) error
}

// Dependencies are the collaborators a Manager cannot run without.
type Dependencies struct {
	Repository   Repository
	Availability WindowSource
	Locker       lock.Locker
	Pricing      *pricing.Engine
	Rates        pricing.RateCard
	Refunds      *refund.Policy
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDispatcher sends post-commit events.
func WithDispatcher(d events.Dispatcher) Option {
	return func(m *Manager) { m.dispatcher = d }
}

// WithRecorder writes every transition to an audit trail.
func WithRecorder(r TransitionRecorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithMetrics counts operations by outcome.
func WithMetrics(mt *metrics.BookingMetrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithFullRefundOnOperatorCancel refunds the whole price when the provider,
// an admin or the system cancels. Without it every cancellation goes through
// the refund policy.
func WithFullRefundOnOperatorCancel(enabled bool) Option {
	return func(m *Manager) { m.operatorFullRefund = enabled }
}

// WithSlotStep sets the granularity of OpenSlots in minutes.
func WithSlotStep(minutes int) Option {
	return func(m *Manager) {
		if minutes > 0 {
			m.slotStep = minutes
		}
	}
}

// Manager owns the booking state machine and the reservation critical section.
type Manager struct {
	repo         Repository
	detector     *Detector
	availability WindowSource
	locker       lock.Locker
	pricing      *pricing.Engine
	rates        pricing.RateCard
	refunds      *refund.Policy

	dispatcher events.Dispatcher
	recorder   TransitionRecorder
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	now        func() time.Time
	slotStep   int

	operatorFullRefund bool
}

// NewManager wires a lifecycle manager. All Dependencies are required.
func NewManager(deps Dependencies, logger *logging.Logger, opts ...Option) *Manager {
	switch {
	case deps.Repository == nil:
		panic("bookings: repository required")
	case deps.Availability == nil:
		panic("bookings: availability source required")
	case deps.Locker == nil:
		panic("bookings: locker required")
	case deps.Pricing == nil:
		panic("bookings: pricing engine required")
	case deps.Rates == nil:
		panic("bookings: rate card required")
	}
	if deps.Refunds == nil {
		deps.Refunds = refund.DefaultPolicy()
	}
	if logger == nil {
		logger = logging.Default()
	}
	m := &Manager{
		repo:         deps.Repository,
		detector:     NewDetector(deps.Repository),
		availability: deps.Availability,
		locker:       deps.Locker,
		pricing:      deps.Pricing,
		rates:        deps.Rates,
		refunds:      deps.Refunds,
		logger:       logger,
		now:          time.Now,
		slotStep:     defaultSlotStep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create reserves a new pending booking. The availability check, conflict
// check and insert run under the provider lock.
func (m *Manager) Create(ctx context.Context, actor identity.Actor, req CreateRequest) (_ *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer func() { m.finish(span, "create", err) }()
	span.SetAttributes(attribute.String("booking.provider_id", req.ProviderID))

	if err := req.Validate(m.now()); err != nil {
		return nil, err
	}
	if actor.ID != req.ClientID && !actor.IsAdmin() && !actor.IsSystem() {
		return nil, fmt.Errorf("%w: bookings are created by the client", ErrForbidden)
	}
	rate, err := m.rates.Rate(ctx, req.ProviderID, req.ServiceID)
	if err != nil {
		if errors.Is(err, pricing.ErrNoRate) {
			return nil, invalid("service_id", "provider has no rate for this service")
		}
		return nil, fmt.Errorf("bookings: resolve rate: %w", err)
	}
	input := pricing.Input{
		DurationMinutes: req.DurationMinutes,
		BaseRate:        rate,
		Extras:          req.Extras,
		At:              req.StartTime,
	}
	if err := m.pricing.Validate(input); err != nil {
		return nil, pricingError(err)
	}

	var created *Booking
	err = m.withProviderLock(ctx, req.ProviderID, func(ctx context.Context) error {
		if err := m.feasible(ctx, req.ProviderID, req.StartTime, req.DurationMinutes, ""); err != nil {
			return err
		}
		window, err := m.availability.Window(ctx, req.ProviderID)
		if err != nil {
			return fmt.Errorf("bookings: load availability: %w", err)
		}
		input.Location = window.Location()
		quote, err := m.pricing.Price(input)
		if err != nil {
			return pricingError(err)
		}
		now := m.now().UTC()
		b := &Booking{
			ID:              uuid.NewString(),
			ProviderID:      req.ProviderID,
			ClientID:        req.ClientID,
			ServiceID:       req.ServiceID,
			StartTime:       req.StartTime.UTC(),
			DurationMinutes: req.DurationMinutes,
			Status:          StatusPending,
			Price:           quote.Total,
			Extras:          req.Extras,
			Notes:           req.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := m.insert(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("booking.id", created.ID))
	m.logger.Info("booking created", "booking_id", created.ID, "reference", created.Reference,
		"provider_id", created.ProviderID, "client_id", created.ClientID, "start_time", created.StartTime,
		"duration_minutes", created.DurationMinutes, "price_minor", created.Price.AmountMinor)
	m.afterCommit(ctx, created, "", events.TypeCreated, actor, "", nil)
	return created, nil
}

// Confirm moves a pending booking to confirmed. Only its provider may confirm.
func (m *Manager) Confirm(ctx context.Context, bookingID string, actor identity.Actor) (_ *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.confirm")
	defer func() { m.finish(span, "confirm", err) }()
	span.SetAttributes(attribute.String("booking.id", bookingID))

	b, err := m.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID != b.ProviderID {
		return nil, fmt.Errorf("%w: only the provider may confirm", ErrForbidden)
	}
	from, version := b.Status, b.Version
	if err := transition(b, StatusConfirmed); err != nil {
		return nil, err
	}
	now := m.now().UTC()
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	if err := m.update(ctx, b, version); err != nil {
		return nil, err
	}

	m.logger.Info("booking confirmed", "booking_id", b.ID, "provider_id", b.ProviderID)
	m.afterCommit(ctx, b, from, events.TypeConfirmed, actor, "", nil)
	return b, nil
}

// Cancel moves a pending or confirmed booking to cancelled and records the
// refund owed by the policy for the notice left before the start.
func (m *Manager) Cancel(ctx context.Context, bookingID string, actor identity.Actor, req CancelRequest) (_ *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer func() { m.finish(span, "cancel", err) }()
	span.SetAttributes(attribute.String("booking.id", bookingID))

	if err := req.Validate(); err != nil {
		return nil, err
	}
	b, err := m.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	isClient := actor.ID == b.ClientID
	if !isClient && actor.ID != b.ProviderID && !actor.IsAdmin() && !actor.IsSystem() {
		return nil, fmt.Errorf("%w: only the client, the provider or an admin may cancel", ErrForbidden)
	}
	from, version := b.Status, b.Version
	if err := transition(b, StatusCancelled); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	fraction := m.refunds.Fraction(b.StartTime.Sub(now))
	if m.operatorFullRefund && !isClient {
		fraction = 1
	}
	b.CancelledAt = &now
	b.CancelledBy = actor.ID
	b.CancellationReason = req.Reason
	b.RefundFraction = fraction
	b.RefundAmountMinor = refund.Amount(b.Price.AmountMinor, fraction)
	b.UpdatedAt = now
	if err := m.update(ctx, b, version); err != nil {
		return nil, err
	}

	m.logger.Info("booking cancelled", "booking_id", b.ID, "cancelled_by", actor.ID,
		"refund_fraction", fraction, "refund_minor", b.RefundAmountMinor)
	m.afterCommit(ctx, b, from, events.TypeCancelled, actor, req.Reason, nil)
	return b, nil
}

// Reschedule moves a pending or confirmed booking to a new start time with
// the same provider and duration. On any failure the booking is untouched.
func (m *Manager) Reschedule(ctx context.Context, bookingID string, actor identity.Actor, req RescheduleRequest) (_ *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer func() { m.finish(span, "reschedule", err) }()
	span.SetAttributes(attribute.String("booking.id", bookingID))

	if err := req.Validate(m.now()); err != nil {
		return nil, err
	}
	current, err := m.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID != current.ClientID && actor.ID != current.ProviderID {
		return nil, fmt.Errorf("%w: only the client or the provider may reschedule", ErrForbidden)
	}
	span.SetAttributes(attribute.String("booking.provider_id", current.ProviderID))

	var (
		updated  *Booking
		previous time.Time
	)
	err = m.withProviderLock(ctx, current.ProviderID, func(ctx context.Context) error {
		b, err := m.repo.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.Active() {
			return fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidState, b.Status)
		}
		if err := m.feasible(ctx, b.ProviderID, req.NewStartTime, b.DurationMinutes, b.ID); err != nil {
			return err
		}
		version := b.Version
		previous = b.StartTime
		b.StartTime = req.NewStartTime.UTC()
		b.Rescheduled = true
		b.RescheduleReason = req.Reason
		b.UpdatedAt = m.now().UTC()
		if err := m.update(ctx, b, version); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("booking rescheduled", "booking_id", updated.ID, "provider_id", updated.ProviderID,
		"from", previous, "to", updated.StartTime)
	m.afterCommit(ctx, updated, updated.Status, events.TypeRescheduled, actor, req.Reason, &previous)
	return updated, nil
}

// Complete closes a confirmed booking whose service window has elapsed.
// Only system or admin actors may complete.
func (m *Manager) Complete(ctx context.Context, bookingID string, actor identity.Actor) (_ *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.complete")
	defer func() { m.finish(span, "complete", err) }()
	span.SetAttributes(attribute.String("booking.id", bookingID))

	if !actor.IsSystem() && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: completion is a system transition", ErrForbidden)
	}
	b, err := m.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	from, version := b.Status, b.Version
	if err := transition(b, StatusCompleted); err != nil {
		return nil, err
	}
	now := m.now().UTC()
	if now.Before(b.EndTime()) {
		return nil, fmt.Errorf("%w: booking %s ends at %s", ErrInvalidState, b.ID, b.EndTime().Format(time.RFC3339))
	}
	b.CompletedAt = &now
	b.UpdatedAt = now
	if err := m.update(ctx, b, version); err != nil {
		return nil, err
	}

	m.logger.Info("booking completed", "booking_id", b.ID, "provider_id", b.ProviderID)
	m.afterCommit(ctx, b, from, events.TypeCompleted, actor, "", nil)
	return b, nil
}

// CheckAvailability reports whether a create for this interval would pass
// the availability and conflict checks right now. It takes no lock, so the
// answer can be stale by the time a create runs.
func (m *Manager) CheckAvailability(ctx context.Context, providerID string, start time.Time, durationMinutes int) (_ bool, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.check_availability")
	defer func() { m.finish(span, "check_availability", err) }()
	span.SetAttributes(attribute.String("booking.provider_id", providerID))

	if providerID == "" {
		return false, invalid("provider_id", "is required")
	}
	if start.IsZero() {
		return false, invalid("start_time", "is required")
	}
	if err := validateDuration(durationMinutes); err != nil {
		return false, err
	}
	err = m.feasible(ctx, providerID, start, durationMinutes, "")
	if errors.Is(err, ErrSlotUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns a booking visible to actor.
func (m *Manager) Get(ctx context.Context, bookingID string, actor identity.Actor) (*Booking, error) {
	b, err := m.repo.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID != b.ClientID && actor.ID != b.ProviderID && !actor.IsAdmin() && !actor.IsSystem() {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return b, nil
}

// ListForProvider returns the provider's bookings starting in [from, to).
func (m *Manager) ListForProvider(ctx context.Context, actor identity.Actor, providerID string, from, to time.Time) ([]Booking, error) {
	if err := authorizeProviderView(actor, providerID); err != nil {
		return nil, err
	}
	if !from.Before(to) {
		return nil, invalid("to", "must be after from")
	}
	if to.Sub(from) > maxListRange {
		return nil, invalid("to", "range exceeds 93 days")
	}
	return m.repo.ListForProvider(ctx, providerID, from, to)
}

// ProviderStats summarizes a provider's bookings.
func (m *Manager) ProviderStats(ctx context.Context, actor identity.Actor, providerID string) (*ProviderStats, error) {
	if err := authorizeProviderView(actor, providerID); err != nil {
		return nil, err
	}
	return m.repo.Stats(ctx, providerID, m.now())
}

// OpenSlots lists future start times on date (provider-local YYYY-MM-DD)
// where a booking of durationMinutes would currently be accepted.
func (m *Manager) OpenSlots(ctx context.Context, providerID, date string, durationMinutes int) ([]time.Time, error) {
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}
	window, err := m.availability.Window(ctx, providerID)
	if errors.Is(err, availability.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: load availability: %w", err)
	}
	day, err := availability.ParseDate(date, window.Location())
	if err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	active, err := m.repo.ListActive(ctx, providerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	busy := func(start, end time.Time) bool {
		candidate := Interval{Start: start, End: end}
		for _, b := range active {
			if b.Interval().Overlaps(candidate) {
				return true
			}
		}
		return false
	}
	slots, err := availability.OpenSlots(window, date, durationMinutes, m.slotStep, busy)
	if err != nil {
		return nil, invalid("date", err.Error())
	}
	now := m.now()
	future := slots[:0]
	for _, s := range slots {
		if s.After(now) {
			future = append(future, s)
		}
	}
	return future, nil
}

// feasible runs the availability and conflict checks for a candidate.
func (m *Manager) feasible(ctx context.Context, providerID string, start time.Time, durationMinutes int, excludeID string) error {
	ok, err := m.availability.IsWithinAvailability(ctx, providerID, start, durationMinutes)
	if err != nil {
		return fmt.Errorf("bookings: load availability: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: outside provider availability", ErrSlotUnavailable)
	}
	conflict, err := m.detector.HasConflict(ctx, providerID, start, durationMinutes, excludeID)
	if err != nil {
		return fmt.Errorf("bookings: conflict check: %w", err)
	}
	if conflict {
		return fmt.Errorf("%w: overlaps an active booking", ErrSlotUnavailable)
	}
	return nil
}

// withProviderLock runs fn under the provider's reservation lock. Failing
// to acquire the lock surfaces as ErrResourceBusy.
func (m *Manager) withProviderLock(ctx context.Context, providerID string, fn func(ctx context.Context) error) error {
	entered := false
	err := lock.WithLock(ctx, m.locker, lock.ProviderKey(providerID), m.logger, func(ctx context.Context) error {
		entered = true
		return fn(ctx)
	})
	if err != nil && !entered {
		return fmt.Errorf("%w: provider %s: %w", ErrResourceBusy, providerID, err)
	}
	return err
}

func (m *Manager) insert(ctx context.Context, b *Booking) error {
	var err error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		b.Reference = NewReference()
		err = m.repo.Insert(ctx, b)
		if !errors.Is(err, ErrDuplicateReference) {
			return err
		}
	}
	return fmt.Errorf("bookings: could not allocate a unique reference: %w", err)
}

func (m *Manager) update(ctx context.Context, b *Booking, version int64) error {
	err := m.repo.Update(ctx, b, version)
	if errors.Is(err, ErrVersionConflict) {
		return fmt.Errorf("%w: booking %s was modified concurrently", ErrInvalidState, b.ID)
	}
	return err
}

// afterCommit emits the event and audit row for a committed transition.
// Failures are logged and never undo the transition.
func (m *Manager) afterCommit(ctx context.Context, b *Booking, from Status, typ events.Type, actor identity.Actor, reason string, previousStart *time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()

	if m.recorder != nil {
		err := m.recorder.RecordTransition(ctx, audit.Transition{
			BookingID: b.ID,
			From:      string(from),
			To:        string(b.Status),
			ActorID:   actor.ID,
			ActorRole: string(actor.Role),
			Reason:    reason,
			At:        b.UpdatedAt,
		})
		if err != nil {
			m.logger.Warn("audit record failed", "booking_id", b.ID, "type", typ, "error", err)
		}
	}
	if m.dispatcher != nil {
		event := events.BookingEvent{
			EventID:           uuid.NewString(),
			Type:              typ,
			BookingID:         b.ID,
			Reference:         b.Reference,
			ProviderID:        b.ProviderID,
			ClientID:          b.ClientID,
			ServiceID:         b.ServiceID,
			Status:            string(b.Status),
			FromStatus:        string(from),
			StartTime:         b.StartTime,
			DurationMinutes:   b.DurationMinutes,
			PreviousStartTime: previousStart,
			AmountMinor:       b.Price.AmountMinor,
			Currency:          b.Price.Currency,
			ActorID:           actor.ID,
			ActorRole:         string(actor.Role),
			Reason:            reason,
			RefundFraction:    b.RefundFraction,
			RefundAmountMinor: b.RefundAmountMinor,
			OccurredAt:        b.UpdatedAt,
		}
		if err := m.dispatcher.Dispatch(ctx, event); err != nil {
			m.logger.Warn("event dispatch failed", "booking_id", b.ID, "type", typ, "error", err)
		}
	}
}

func (m *Manager) finish(span trace.Span, operation string, err error) {
	outcome := Classify(err)
	span.SetAttributes(attribute.String("booking.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		if outcome == "error" {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
	m.metrics.ObserveOperation(operation, outcome)
}

func authorizeProviderView(actor identity.Actor, providerID string) error {
	if actor.ID == providerID || actor.IsAdmin() || actor.IsSystem() {
		return nil
	}
	return fmt.Errorf("%w: only the provider or an admin may view this", ErrForbidden)
}

func pricingError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrUnknownExtra):
		return invalid("extras", err.Error())
	case errors.Is(err, pricing.ErrUnsupportedCurrency):
		return invalid("currency", err.Error())
	case errors.Is(err, pricing.ErrInvalidInput):
		return invalid("duration_minutes", err.Error())
	}
	return err
}
