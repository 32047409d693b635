package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

// EmailSink turns booking notifications into emails.
type EmailSink struct {
	sender    EmailSender
	directory Directory
	logger    *logging.Logger
}

func NewEmailSink(sender EmailSender, directory Directory, logger *logging.Logger) *EmailSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailSink{sender: sender, directory: directory, logger: logger}
}

// Notify emails userID about event. Users without a contact are skipped.
func (s *EmailSink) Notify(ctx context.Context, userID, event string, payload map[string]any) error {
	if s.sender == nil || s.directory == nil {
		s.logger.Debug("notify: email sink not configured, skipping", "user_id", userID, "event", event)
		return nil
	}
	contact, err := s.directory.Lookup(ctx, userID)
	if errors.Is(err, ErrUnknownRecipient) {
		s.logger.Warn("notify: no contact on file", "user_id", userID, "event", event)
		return nil
	}
	if err != nil {
		return err
	}

	subject, body := render(event, payload)
	if err := s.sender.Send(ctx, EmailMessage{To: contact.Email, ToName: contact.Name, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("notify: email %s about %s: %w", userID, event, err)
	}
	return nil
}

var subjects = map[string]string{
	"booking.created":     "New booking request",
	"booking.confirmed":   "Your booking is confirmed",
	"booking.cancelled":   "Booking cancelled",
	"booking.rescheduled": "Booking moved to a new time",
	"booking.completed":   "Thanks for your visit",
}

func render(event string, payload map[string]any) (string, string) {
	subject, ok := subjects[event]
	if !ok {
		subject = "Booking update"
	}
	if ref, _ := payload["reference"].(string); ref != "" {
		subject = fmt.Sprintf("%s (%s)", subject, ref)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subject)
	if start := formatWhen(payload["start_time"]); start != "" {
		fmt.Fprintf(&b, "When: %s\n", start)
	}
	if minutes, ok := payload["duration_minutes"].(int); ok && minutes > 0 {
		fmt.Fprintf(&b, "Duration: %d minutes\n", minutes)
	}
	if prev := formatWhen(payload["previous_start_time"]); prev != "" {
		fmt.Fprintf(&b, "Previously: %s\n", prev)
	}
	currency, _ := payload["currency"].(string)
	if amount, ok := payload["amount_minor"].(int64); ok && amount > 0 && event != "booking.cancelled" {
		fmt.Fprintf(&b, "Price: %s\n", formatAmount(amount, currency))
	}
	if refund, ok := payload["refund_amount_minor"].(int64); ok && event == "booking.cancelled" {
		fmt.Fprintf(&b, "Refund: %s\n", formatAmount(refund, currency))
	}
	if reason, _ := payload["reason"].(string); reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", reason)
	}
	return subject, b.String()
}

func formatWhen(v any) string {
	raw, _ := v.(string)
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("Monday, January 2 at 15:04 UTC")
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
