// Package calendar publishes calendar projections of bookings.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wolfman30/booking-engine/internal/events"
)

// sqsAPI is the subset of *sqs.Client the sink needs.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink publishes calendar events to an SQS queue consumed by the
// calendar integration worker.
type SQSSink struct {
	client   sqsAPI
	queueURL string
}

func NewSQSSink(client *sqs.Client, queueURL string) *SQSSink {
	if client == nil {
		panic("calendar: SQS client cannot be nil")
	}
	return newSQSSink(client, queueURL)
}

func newSQSSink(client sqsAPI, queueURL string) *SQSSink {
	if queueURL == "" {
		panic("calendar: SQS queueURL cannot be empty")
	}
	return &SQSSink{client: client, queueURL: queueURL}
}

func (s *SQSSink) CreateEvent(ctx context.Context, event events.CalendarEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("calendar: marshal event: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"action":     {DataType: aws.String("String"), StringValue: aws.String(event.Action)},
			"booking_id": {DataType: aws.String("String"), StringValue: aws.String(event.BookingID)},
		},
	})
	if err != nil {
		return fmt.Errorf("calendar: failed to send SQS message: %w", err)
	}
	return nil
}

// MemorySink keeps calendar events in process memory.
type MemorySink struct {
	mu     sync.Mutex
	events []events.CalendarEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) CreateEvent(_ context.Context, event events.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns the recorded events in order.
func (s *MemorySink) Events() []events.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.CalendarEvent(nil), s.events...)
}

var (
	_ events.CalendarSink = (*SQSSink)(nil)
	_ events.CalendarSink = (*MemorySink)(nil)
)
