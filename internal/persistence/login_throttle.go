package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "auth:login:failures:"

// LoginThrottle counts failed sign-in attempts per email in a fixed window.
// Without a client every call is allowed.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle builds a throttle; r may be nil.
func NewLoginThrottle(r *Redis, maxAttempts int, window time.Duration) *LoginThrottle {
	t := &LoginThrottle{maxAttempts: int64(maxAttempts), window: window}
	if r != nil {
		t.client = r.Client
	}
	return t
}

func loginAttemptsKey(email string) string {
	return loginAttemptsPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (t *LoginThrottle) enabled() bool {
	return t != nil && t.client != nil && t.maxAttempts > 0
}

// Allow reports whether another attempt for email may proceed. Redis errors
// are returned together with true.
func (t *LoginThrottle) Allow(ctx context.Context, email string) (bool, error) {
	if !t.enabled() {
		return true, nil
	}
	n, err := t.client.Get(ctx, loginAttemptsKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return n < t.maxAttempts, nil
}

// RecordFailure increments the failure counter and refreshes its window.
func (t *LoginThrottle) RecordFailure(ctx context.Context, email string) error {
	if !t.enabled() {
		return nil
	}
	pipe := t.client.Pipeline()
	pipe.Incr(ctx, loginAttemptsKey(email))
	pipe.Expire(ctx, loginAttemptsKey(email), t.window)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) error {
	if !t.enabled() {
		return nil
	}
	return t.client.Del(ctx, loginAttemptsKey(email)).Err()
}
