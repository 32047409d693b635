package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/booking-engine/internal/calendar"
	appconfig "github.com/wolfman30/booking-engine/internal/config"
	"github.com/wolfman30/booking-engine/internal/events"
	"github.com/wolfman30/booking-engine/internal/notify"
	"github.com/wolfman30/booking-engine/internal/payments"
	"github.com/wolfman30/booking-engine/pkg/logging"
)

// BuildEmailSender picks the configured provider. Anything unusable falls
// back to the logging stub so local runs still exercise the notify path.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("sendgrid selected without api key; using stub email sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("ses selected without aws config; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildDirectory returns the contact lookup used by the email sink.
func BuildDirectory(client *redis.Client) notify.Directory {
	if client == nil {
		return notify.NewMemoryDirectory()
	}
	return notify.NewRedisDirectory(client)
}

// BuildPaymentGateway returns Stripe when a key is configured and the fake
// gateway otherwise.
func BuildPaymentGateway(cfg *appconfig.Config, logger *logging.Logger) events.PaymentGateway {
	if g := payments.NewStripeGateway(cfg.StripeSecretKey, logger); g != nil {
		return g
	}
	if logger != nil {
		logger.Warn("stripe key not set; payments are simulated")
	}
	return payments.NewFakeGateway(logger)
}

// BuildCalendarSink publishes to SQS when a queue is configured.
func BuildCalendarSink(cfg *appconfig.Config, awsCfg *aws.Config) events.CalendarSink {
	if awsCfg == nil || cfg.CalendarQueueURL == "" {
		return calendar.NewMemorySink()
	}
	return calendar.NewSQSSink(sqs.NewFromConfig(*awsCfg), cfg.CalendarQueueURL)
}
