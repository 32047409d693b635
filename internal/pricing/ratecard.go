package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultService is the rate-card entry used when a service has no rate of its own.
const DefaultService = "default"

// RateCard resolves a provider's hourly base rate for a service.
type RateCard interface {
	Rate(ctx context.Context, providerID, serviceID string) (Money, error)
}

// MemoryRateCard keeps rates in process memory.
type MemoryRateCard struct {
	mu    sync.RWMutex
	rates map[string]map[string]Money
}

// NewMemoryRateCard creates an empty rate card.
func NewMemoryRateCard() *MemoryRateCard {
	return &MemoryRateCard{rates: make(map[string]map[string]Money)}
}

// Set stores a rate; an empty serviceID sets the provider default.
func (c *MemoryRateCard) Set(providerID, serviceID string, rate Money) error {
	currency, err := NormalizeCurrency(rate.Currency)
	if err != nil {
		return err
	}
	rate.Currency = currency
	if serviceID == "" {
		serviceID = DefaultService
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rates[providerID] == nil {
		c.rates[providerID] = make(map[string]Money)
	}
	c.rates[providerID][serviceID] = rate
	return nil
}

func (c *MemoryRateCard) Rate(_ context.Context, providerID, serviceID string) (Money, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	services := c.rates[providerID]
	if rate, ok := services[serviceID]; ok && serviceID != "" {
		return rate, nil
	}
	if rate, ok := services[DefaultService]; ok {
		return rate, nil
	}
	return Money{}, fmt.Errorf("%w: provider %s service %q", ErrNoRate, providerID, serviceID)
}

// RedisRateCard stores one hash per provider: field = service id, value = JSON Money.
type RedisRateCard struct {
	redis *redis.Client
}

// NewRedisRateCard creates a Redis-backed rate card.
func NewRedisRateCard(client *redis.Client) *RedisRateCard {
	return &RedisRateCard{redis: client}
}

func (c *RedisRateCard) key(providerID string) string {
	return fmt.Sprintf("pricing:rates:%s", providerID)
}

// Set stores a rate; an empty serviceID sets the provider default.
func (c *RedisRateCard) Set(ctx context.Context, providerID, serviceID string, rate Money) error {
	currency, err := NormalizeCurrency(rate.Currency)
	if err != nil {
		return err
	}
	rate.Currency = currency
	if serviceID == "" {
		serviceID = DefaultService
	}
	data, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("pricing: marshal rate: %w", err)
	}
	if err := c.redis.HSet(ctx, c.key(providerID), serviceID, data).Err(); err != nil {
		return fmt.Errorf("pricing: set rate: %w", err)
	}
	return nil
}

func (c *RedisRateCard) Rate(ctx context.Context, providerID, serviceID string) (Money, error) {
	fields := []string{DefaultService}
	if serviceID != "" && serviceID != DefaultService {
		fields = []string{serviceID, DefaultService}
	}
	values, err := c.redis.HMGet(ctx, c.key(providerID), fields...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Money{}, fmt.Errorf("pricing: get rate: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rate Money
		if err := json.Unmarshal([]byte(raw), &rate); err != nil {
			return Money{}, fmt.Errorf("pricing: unmarshal rate: %w", err)
		}
		return rate, nil
	}
	return Money{}, fmt.Errorf("%w: provider %s service %q", ErrNoRate, providerID, serviceID)
}

// FallbackRateCard answers with a house rate when the wrapped card has none.
type FallbackRateCard struct {
	Card    RateCard
	Default Money
}

func (c FallbackRateCard) Rate(ctx context.Context, providerID, serviceID string) (Money, error) {
	rate, err := c.Card.Rate(ctx, providerID, serviceID)
	if errors.Is(err, ErrNoRate) && c.Default.AmountMinor > 0 {
		return c.Default, nil
	}
	return rate, err
}
