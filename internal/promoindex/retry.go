package promoindex

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// ErrRateLimited marks a search that still failed with a rate-limit
// response after all retry attempts.
var ErrRateLimited = errors.New("promo index rate limited")

// ErrUnauthorized marks an authentication failure. Unlike transient
// failures this is fatal to the whole matching run.
var ErrUnauthorized = errors.New("promo index authentication failed")

// RetryConfig holds retry configuration for rate-limited requests.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    defaultMaxAttempts,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// isRateLimited reports whether a response indicates quota exhaustion.
// Only rate limits are retried; every other failure surfaces to the
// caller immediately so it can degrade to an empty result set.
func isRateLimited(statusCode int, body []byte) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ReplaceAll(strings.ToLower(string(body)), "_", " ")
	return strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "rate limit")
}

// backoffDuration computes the wait before the given retry attempt,
// doubling from InitialBackoff and capped at MaxBackoff.
func backoffDuration(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
