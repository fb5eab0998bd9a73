package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlater/sendlater/pkg/ratelimit"
)

func TestMemoryStore_AdmitRevertsOnExceed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0))
	defer store.Close()

	count, allowed, err := store.Admit(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)

	count, allowed, err = store.Admit(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(1), count)

	// The revert must leave the counter where it was.
	count, err = store.Count(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_WindowExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0))
	defer store.Close()

	_, allowed, err := store.Admit(ctx, "k", 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, allowed)

	time.Sleep(20 * time.Millisecond)

	// A fresh window starts once the previous one expired.
	count, allowed, err := store.Admit(ctx, "k", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStore_CountMissingKey(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore(ratelimit.WithCleanupInterval(0))
	defer store.Close()

	count, err := store.Count(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, count)
}
