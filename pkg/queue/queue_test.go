package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlater/sendlater/pkg/queue"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil storage", func(t *testing.T) {
		t.Parallel()

		_, err := queue.New(nil)
		assert.ErrorIs(t, err, queue.ErrStorageNil)
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		q, err := queue.New(storage)
		require.NoError(t, err)

		require.NoError(t, q.Enqueue(context.Background(), "email-1", map[string]string{"to": "a@b.c"}, 0))

		job, err := q.Lookup(context.Background(), "email-1")
		require.NoError(t, err)
		assert.Equal(t, 3, job.MaxAttempts)
		assert.Equal(t, 5*time.Second, job.Backoff)
	})
}

func TestQueue_Enqueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()
	q, err := queue.New(storage, queue.WithMaxAttempts(5), queue.WithBackoff(time.Second))
	require.NoError(t, err)

	t.Run("validates input", func(t *testing.T) {
		assert.ErrorIs(t, q.Enqueue(ctx, "", map[string]string{}, 0), queue.ErrEmptyJobID)
		assert.ErrorIs(t, q.Enqueue(ctx, "email-1", nil, 0), queue.ErrPayloadNil)
	})

	t.Run("delayed job carries future run time", func(t *testing.T) {
		before := time.Now()
		require.NoError(t, q.Enqueue(ctx, "email-2", map[string]string{"to": "a@b.c"}, time.Hour))

		job, err := q.Lookup(ctx, "email-2")
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, job.Status)
		assert.Equal(t, 5, job.MaxAttempts)
		assert.Equal(t, time.Second, job.Backoff)
		assert.False(t, job.RunAt.Before(before.Add(time.Hour)))
	})

	t.Run("negative delay runs immediately", func(t *testing.T) {
		require.NoError(t, q.Enqueue(ctx, "email-3", map[string]string{"to": "a@b.c"}, -time.Minute))

		job, err := q.Lookup(ctx, "email-3")
		require.NoError(t, err)
		assert.False(t, job.RunAt.After(time.Now()))
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := q.Enqueue(ctx, "email-2", map[string]string{"to": "a@b.c"}, 0)
		assert.ErrorIs(t, err, queue.ErrJobExists)
	})
}

func TestQueue_Remove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := queue.NewMemoryStorage()
	q, err := queue.New(storage)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, "email-1", map[string]string{"to": "a@b.c"}, time.Hour))

	t.Run("removes pending job", func(t *testing.T) {
		require.NoError(t, q.Remove(ctx, "email-1"))
		_, err := q.Lookup(ctx, "email-1")
		assert.ErrorIs(t, err, queue.ErrJobNotFound)
	})

	t.Run("idempotent for absent jobs", func(t *testing.T) {
		assert.NoError(t, q.Remove(ctx, "email-1"))
		assert.NoError(t, q.Remove(ctx, "never-existed"))
	})

	t.Run("refuses active job", func(t *testing.T) {
		require.NoError(t, q.Enqueue(ctx, "email-2", map[string]string{"to": "a@b.c"}, 0))
		_, err := storage.ClaimJob(ctx, time.Minute)
		require.NoError(t, err)

		assert.ErrorIs(t, q.Remove(ctx, "email-2"), queue.ErrJobActive)
	})
}

func TestQueue_Counts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q, err := queue.New(queue.NewMemoryStorage())
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, "email-1", map[string]string{"to": "a@b.c"}, 0))
	require.NoError(t, q.Enqueue(ctx, "email-2", map[string]string{"to": "a@b.c"}, time.Hour))

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Waiting)
	assert.Equal(t, int64(1), counts.Delayed)
}
