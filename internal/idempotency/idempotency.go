// Package idempotency remembers the outcome of client requests carrying an
// Idempotency-Key so that retries replay the first result.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pending = "pending"

	// PendingTTL bounds how long an unfinished claim blocks retries. A claim
	// whose result could not be recorded frees itself after this long.
	PendingTTL = time.Minute

	completeAttempts = 3
	completeBackoff  = 50 * time.Millisecond
)

var (
	// ErrInvalidKey indicates the key is not a UUID.
	ErrInvalidKey = errors.New("idempotency key must be a UUID")
	// ErrInFlight indicates another request with the same key is still running.
	ErrInFlight = errors.New("request with this idempotency key is in progress")
)

// Store persists keys in Redis.
type Store struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	prefix     string
}

// New constructs the store. A nil client disables idempotency checks.
func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	pendingTTL := PendingTTL
	if pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &Store{client: client, ttl: ttl, pendingTTL: pendingTTL, prefix: "idempotency:"}
}

// Begin claims key for scope. It returns the stored result when the key has
// already completed, or an empty string when the caller now owns the key.
func (s *Store) Begin(ctx context.Context, scope, key string) (string, error) {
	if _, err := uuid.Parse(key); err != nil {
		return "", ErrInvalidKey
	}
	if s == nil || s.client == nil {
		return "", nil
	}
	redisKey := s.key(scope, key)
	claimed, err := s.client.SetNX(ctx, redisKey, pending, s.pendingTTL).Result()
	if err != nil {
		return "", err
	}
	if claimed {
		return "", nil
	}
	result, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.Begin(ctx, scope, key)
	}
	if err != nil {
		return "", err
	}
	if result == pending {
		return "", ErrInFlight
	}
	return result, nil
}

// Complete records the result for key, retrying transient failures. When the
// result cannot be stored the claim is released so retries are not refused.
func (s *Store) Complete(ctx context.Context, scope, key, result string) error {
	if s == nil || s.client == nil {
		return nil
	}
	redisKey := s.key(scope, key)
	var err error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		if err = s.client.Set(ctx, redisKey, result, s.ttl).Err(); err == nil {
			return nil
		}
		if attempt == completeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt) * completeBackoff):
		}
	}
	if delErr := s.client.Del(ctx, redisKey).Err(); delErr != nil {
		return errors.Join(err, delErr)
	}
	return err
}

// Abort releases key so the request can be retried.
func (s *Store) Abort(ctx context.Context, scope, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key(scope, key)).Err()
}

func (s *Store) key(scope, key string) string {
	return s.prefix + scope + ":" + key
}
