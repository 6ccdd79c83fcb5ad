// Package cache implements the expiring key-value store backing single-use
// verification secrets and session markers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// ErrUnavailable wraps any infrastructure failure talking to the store. It is
// fatal to the calling operation: auth state is never silently bypassed.
var ErrUnavailable = errors.New("cache: store unavailable")

// Store is a mapping from key to value with per-key expiry.
//
// Set is an unconditional write. Callers that need the at-most-one-live-entry
// invariant must check Exists first and only Set when absent; the store does
// not enforce conditional writes because flows differ on how they treat a
// live entry (idempotent "already sent" vs. intentional re-issuance).
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Remove is idempotent; removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Store on top of a go-redis client.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", unavailable(err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
