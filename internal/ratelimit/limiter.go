// Package ratelimit enforces the monthly per-user quota on
// recommendation requests, backed by Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status reports a user's quota state for the current period.
type Status struct {
	Allowed    bool      `json:"allowed"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	PeriodEnd  time.Time `json:"period_end"`
	RetryAfter int       `json:"retry_after_seconds,omitempty"`
}

// Config holds limiter configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	// RequestsPerMonth is the per-user quota; 0 disables limiting.
	RequestsPerMonth int
	Prefix           string
}

// Limiter counts requests per user per calendar month. Counter keys
// expire at period end so stale users cost nothing.
type Limiter struct {
	client *redis.Client
	limit  int
	prefix string
	now    func() time.Time
}

// NewLimiter creates a limiter and verifies the Redis connection.
func NewLimiter(cfg Config) (*Limiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "promo:quota:"
	}

	return &Limiter{
		client: client,
		limit:  cfg.RequestsPerMonth,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Allow consumes one request from the user's quota. When the quota is
// spent no request is consumed and the returned status carries the
// seconds until the period resets.
func (l *Limiter) Allow(ctx context.Context, userID string) (Status, error) {
	now := l.now().UTC()
	status := Status{Allowed: true, Limit: l.limit, PeriodEnd: periodEnd(now)}
	if l.limit <= 0 {
		return status, nil
	}

	key := l.key(userID, now)

	// INCR is the admission gate, so concurrent requests can never
	// both slip under the limit. Denied requests give their slot back.
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, status.PeriodEnd)
	if _, err := pipe.Exec(ctx); err != nil {
		return Status{}, fmt.Errorf("quota increment: %w", err)
	}

	used := int(incr.Val())
	if used > l.limit {
		if err := l.client.Decr(ctx, key).Err(); err != nil {
			return Status{}, fmt.Errorf("quota rollback: %w", err)
		}
		status.Allowed = false
		status.Used = l.limit
		status.Remaining = 0
		status.RetryAfter = int(status.PeriodEnd.Sub(now).Seconds())
		return status, nil
	}

	status.Used = used
	status.Remaining = l.limit - used
	return status, nil
}

// GetStatus reports the quota state without consuming a request.
func (l *Limiter) GetStatus(ctx context.Context, userID string) (Status, error) {
	now := l.now().UTC()
	status := Status{Allowed: true, Limit: l.limit, PeriodEnd: periodEnd(now)}
	if l.limit <= 0 {
		return status, nil
	}

	used, err := l.client.Get(ctx, l.key(userID, now)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Status{}, fmt.Errorf("quota lookup: %w", err)
	}

	status.Used = used
	status.Remaining = l.limit - used
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if used >= l.limit {
		status.Allowed = false
		status.RetryAfter = int(status.PeriodEnd.Sub(now).Seconds())
	}
	return status, nil
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	return l.client.Close()
}

func (l *Limiter) key(userID string, now time.Time) string {
	return fmt.Sprintf("%s%s:%s", l.prefix, userID, now.Format("200601"))
}

// periodEnd is the first instant of the next calendar month.
func periodEnd(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
