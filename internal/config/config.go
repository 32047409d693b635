package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Reservation lock
	LockTTL            time.Duration
	LockMaxAttempts    int
	LockRetryBaseDelay time.Duration
	LockRetryMaxDelay  time.Duration

	// Inbound surface
	AuthJWTSecret      string
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string

	// Pricing
	DefaultCurrency        string
	DefaultHourlyRateMinor int64
	WeekendSurcharge       float64
	OperatorCancelRefund   bool

	// Background delivery
	CompletionSweepInterval time.Duration
	OutboxPollInterval      time.Duration
	TaskQueueEnabled        bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	CalendarQueueURL    string

	// Email
	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// Payments
	StripeSecretKey string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LockTTL:            getEnvAsDuration("LOCK_TTL", 10*time.Second),
		LockMaxAttempts:    getEnvAsInt("LOCK_MAX_ATTEMPTS", 20),
		LockRetryBaseDelay: getEnvAsDuration("LOCK_RETRY_BASE_DELAY", 25*time.Millisecond),
		LockRetryMaxDelay:  getEnvAsDuration("LOCK_RETRY_MAX_DELAY", 250*time.Millisecond),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		DefaultCurrency:        strings.ToUpper(strings.TrimSpace(getEnv("DEFAULT_CURRENCY", "USD"))),
		DefaultHourlyRateMinor: int64(getEnvAsInt("DEFAULT_HOURLY_RATE_MINOR", 0)),
		WeekendSurcharge:       getEnvAsFloat("WEEKEND_SURCHARGE", 1.20),
		OperatorCancelRefund:   getEnvAsBool("OPERATOR_CANCEL_FULL_REFUND", false),

		CompletionSweepInterval: getEnvAsDuration("COMPLETION_SWEEP_INTERVAL", 5*time.Minute),
		OutboxPollInterval:      getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		TaskQueueEnabled:        getEnvAsBool("TASK_QUEUE_ENABLED", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		CalendarQueueURL:    getEnv("CALENDAR_QUEUE_URL", ""),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Bookings"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
	}
}

// UsesPostgres reports whether durable booking storage is configured.
func (c *Config) UsesPostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
