package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store persists provider windows.
type Store interface {
	Get(ctx context.Context, providerID string) (*Window, error)
	Put(ctx context.Context, window *Window) error
}

// MemoryStore keeps windows in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*Window
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*Window)}
}

func (s *MemoryStore) Get(_ context.Context, providerID string) (*Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[providerID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneWindow(w), nil
}

func (s *MemoryStore) Put(_ context.Context, window *Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[window.ProviderID] = cloneWindow(window)
	return nil
}

// cloneWindow deep-copies through JSON so callers never share slices.
func cloneWindow(w *Window) *Window {
	data, err := json.Marshal(w)
	if err != nil {
		return w
	}
	var out Window
	if err := json.Unmarshal(data, &out); err != nil {
		return w
	}
	return &out
}

// RedisStore keeps each window as a JSON document under one key.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) key(providerID string) string {
	return fmt.Sprintf("availability:window:%s", providerID)
}

func (s *RedisStore) Get(ctx context.Context, providerID string) (*Window, error) {
	data, err := s.redis.Get(ctx, s.key(providerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("availability: get window: %w", err)
	}
	var w Window
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("availability: unmarshal window: %w", err)
	}
	return &w, nil
}

func (s *RedisStore) Put(ctx context.Context, window *Window) error {
	data, err := json.Marshal(window)
	if err != nil {
		return fmt.Errorf("availability: marshal window: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(window.ProviderID), data, 0).Err(); err != nil {
		return fmt.Errorf("availability: set window: %w", err)
	}
	return nil
}
