package ratelimit

import (
	"context"
	"time"
)

const (
	keyPrefix = "ratelimit:"
	windowTTL = time.Hour
)

// Limiter decides whether a sender may send within the current hour window.
type Limiter struct {
	store        Store
	defaultLimit int
	now          func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Limiter over the given counter store.
func New(store Store, cfg Config, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if cfg.DefaultHourlyLimit <= 0 {
		return nil, ErrInvalidLimit
	}

	l := &Limiter{
		store:        store,
		defaultLimit: cfg.DefaultHourlyLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Admit checks and consumes one slot of the sender's hourly quota.
// A non-positive limit falls back to the configured default. Denial is not
// an error: the returned Result carries the retry delay until the next hour
// boundary.
func (l *Limiter) Admit(ctx context.Context, senderID string, limit int) (Result, error) {
	if limit <= 0 {
		limit = l.defaultLimit
	}

	now := l.now()
	count, allowed, err := l.store.Admit(ctx, windowKey(senderID, now), limit, windowTTL)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Allowed: allowed,
		Current: count,
		Limit:   limit,
	}
	if !allowed {
		res.RetryAfter = nextWindow(now).Sub(now)
	}
	return res, nil
}

// CurrentCount returns the sender's send count within the current window.
func (l *Limiter) CurrentCount(ctx context.Context, senderID string) (int64, error) {
	return l.store.Count(ctx, windowKey(senderID, l.now()))
}

// RemainingQuota returns how many sends the sender has left in the current
// window. A non-positive limit falls back to the configured default.
func (l *Limiter) RemainingQuota(ctx context.Context, senderID string, limit int) (int64, error) {
	if limit <= 0 {
		limit = l.defaultLimit
	}

	count, err := l.CurrentCount(ctx, senderID)
	if err != nil {
		return 0, err
	}
	return max(0, int64(limit)-count), nil
}

// windowKey buckets a sender into its wall-clock hour, e.g.
// "ratelimit:42:2026-08-28-14".
func windowKey(senderID string, t time.Time) string {
	return keyPrefix + senderID + ":" + t.Format("2006-01-02-15")
}

// nextWindow returns the start of the next hour window.
func nextWindow(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
}
