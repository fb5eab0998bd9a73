package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlater/sendlater/pkg/ratelimit"
)

func newLimiter(t *testing.T, limit int, opts ...ratelimit.Option) *ratelimit.Limiter {
	t.Helper()
	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0))
	l, err := ratelimit.New(store, ratelimit.Config{DefaultHourlyLimit: limit}, opts...)
	require.NoError(t, err)
	return l
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := ratelimit.New(nil, ratelimit.Config{DefaultHourlyLimit: 10})
	assert.ErrorIs(t, err, ratelimit.ErrStoreNil)

	_, err = ratelimit.New(ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0)), ratelimit.Config{})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidLimit)
}

func TestAdmit_UpToLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLimiter(t, 3)

	for i := 1; i <= 3; i++ {
		res, err := l.Admit(ctx, "sender-1", 0)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i), res.Current)
		assert.Zero(t, res.RetryAfter)
	}

	res, err := l.Admit(ctx, "sender-1", 0)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.Current, "denied call must not consume a slot")
	assert.Positive(t, res.RetryAfter)
}

func TestAdmit_RetryAfterReachesNextHour(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 14, 15, 30, 0, time.UTC)
	l := newLimiter(t, 1, ratelimit.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	_, err := l.Admit(ctx, "sender-1", 0)
	require.NoError(t, err)

	res, err := l.Admit(ctx, "sender-1", 0)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	assert.Equal(t, 44*time.Minute+30*time.Second, res.RetryAfter)
}

func TestAdmit_PerSenderIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLimiter(t, 1)

	res, err := l.Admit(ctx, "sender-a", 0)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Admit(ctx, "sender-b", 0)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "senders must not share windows")
}

func TestAdmit_PerCallLimitOverridesDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLimiter(t, 100)

	res, err := l.Admit(ctx, "sender-1", 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Limit)

	res, err = l.Admit(ctx, "sender-1", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

// Concurrent admissions within one window must never allow more than the
// limit, regardless of interleaving.
func TestAdmit_ConcurrentNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	const (
		limit   = 10
		callers = 100
	)

	ctx := context.Background()
	l := newLimiter(t, limit)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(callers)
	for range callers {
		go func() {
			defer wg.Done()
			res, err := l.Admit(ctx, "sender-1", 0)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed.Load())

	count, err := l.CurrentCount(ctx, "sender-1")
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)
}

func TestRemainingQuota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := newLimiter(t, 5)

	remaining, err := l.RemainingQuota(ctx, "sender-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), remaining)

	_, err = l.Admit(ctx, "sender-1", 0)
	require.NoError(t, err)
	_, err = l.Admit(ctx, "sender-1", 0)
	require.NoError(t, err)

	remaining, err = l.RemainingQuota(ctx, "sender-1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)
}
