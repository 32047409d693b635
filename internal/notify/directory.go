package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const contactsKey = "notify:contacts"

// ErrUnknownRecipient is returned when a user has no contact on file.
var ErrUnknownRecipient = errors.New("notify: unknown recipient")

// Contact is how a user is reached.
type Contact struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// Directory resolves users to contacts.
type Directory interface {
	Lookup(ctx context.Context, userID string) (Contact, error)
}

// MemoryDirectory keeps contacts in process memory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	contacts map[string]Contact
}

func NewMemoryDirectory(contacts ...Contact) *MemoryDirectory {
	d := &MemoryDirectory{contacts: make(map[string]Contact, len(contacts))}
	for _, c := range contacts {
		d.contacts[c.UserID] = c
	}
	return d
}

func (d *MemoryDirectory) Put(c Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[c.UserID] = c
}

func (d *MemoryDirectory) Lookup(_ context.Context, userID string) (Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.contacts[userID]
	if !ok {
		return Contact{}, ErrUnknownRecipient
	}
	return c, nil
}

// RedisDirectory stores contacts as JSON fields of one hash.
type RedisDirectory struct {
	client *redis.Client
}

func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	if client == nil {
		panic("notify: redis client required")
	}
	return &RedisDirectory{client: client}
}

func (d *RedisDirectory) Put(ctx context.Context, c Contact) error {
	c.Email = strings.TrimSpace(c.Email)
	if c.UserID == "" || c.Email == "" {
		return fmt.Errorf("notify: contact needs user id and email")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("notify: marshal contact: %w", err)
	}
	if err := d.client.HSet(ctx, contactsKey, c.UserID, data).Err(); err != nil {
		return fmt.Errorf("notify: save contact: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Lookup(ctx context.Context, userID string) (Contact, error) {
	data, err := d.client.HGet(ctx, contactsKey, userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Contact{}, ErrUnknownRecipient
	}
	if err != nil {
		return Contact{}, fmt.Errorf("notify: lookup contact: %w", err)
	}
	var c Contact
	if err := json.Unmarshal(data, &c); err != nil {
		return Contact{}, fmt.Errorf("notify: decode contact: %w", err)
	}
	return c, nil
}
