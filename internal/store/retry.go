package store

import (
	"context"
	"errors"
	"time"
)

// DefaultRetryAttempts is used when a caller passes a non-positive attempt count.
const DefaultRetryAttempts = 3

// Retryable reports whether err is a transient failure worth replaying the
// whole transaction for: a lost race on a unique key or a serialization
// conflict.
func Retryable(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConflict)
}

// WithRetry runs fn through s.WithTx and replays it on Retryable errors.
// fn must be safe to run more than once.
func WithRetry(ctx context.Context, s Store, attempts int, fn func(ctx context.Context, tx Tx) error) error {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.WithTx(ctx, fn)
		if err == nil || !Retryable(err) || attempt == attempts {
			return err
		}
		backoff := time.Duration(attempt) * 10 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
