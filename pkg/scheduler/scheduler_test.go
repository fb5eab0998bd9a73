package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendlater/sendlater/pkg/queue"
	"github.com/sendlater/sendlater/pkg/scheduler"
)

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	q, err := queue.New(queue.NewMemoryStorage())
	require.NoError(t, err)
	return q
}

func TestScheduler_ScheduleOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := testSender()

	t.Run("creates record and job", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		q := newTestQueue(t)
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), q, discardLogger())

		sendAt := time.Now().Add(time.Hour)
		id, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			UserID:   uuid.New(),
			SenderID: sender.ID,
			To:       "alice@example.com",
			Subject:  "hello",
			Body:     "later",
			SendAt:   sendAt,
		})
		require.NoError(t, err)

		email, err := emails.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, scheduler.StatusScheduled, email.Status)
		assert.Equal(t, "email-"+id.String(), email.JobID)
		assert.Equal(t, sendAt, email.ScheduledAt)

		job, err := q.Lookup(ctx, email.JobID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, job.Status)
		assert.WithinDuration(t, sendAt, job.RunAt, 2*time.Second)
	})

	t.Run("past send time runs immediately", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		q := newTestQueue(t)
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), q, discardLogger())

		id, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			SenderID: sender.ID,
			To:       "alice@example.com",
			Subject:  "hello",
			SendAt:   time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		email, err := emails.GetByID(ctx, id)
		require.NoError(t, err)
		job, err := q.Lookup(ctx, email.JobID)
		require.NoError(t, err)
		assert.False(t, job.RunAt.After(time.Now()))
	})

	t.Run("invalid recipient", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), newTestQueue(t), discardLogger())

		_, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			SenderID: sender.ID,
			To:       "not-an-address",
			SendAt:   time.Now(),
		})
		assert.ErrorIs(t, err, scheduler.ErrInvalidRecipient)

		got, err := emails.List(ctx, scheduler.EmailFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown sender", func(t *testing.T) {
		t.Parallel()

		s := scheduler.NewScheduler(newFakeEmailStore(), newFakeSenderStore(), newTestQueue(t), discardLogger())

		_, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			SenderID: uuid.New(),
			To:       "alice@example.com",
			SendAt:   time.Now(),
		})
		assert.ErrorIs(t, err, scheduler.ErrSenderNotFound)
	})

	t.Run("inactive sender", func(t *testing.T) {
		t.Parallel()

		inactive := testSender()
		inactive.IsActive = false
		s := scheduler.NewScheduler(newFakeEmailStore(), newFakeSenderStore(inactive), newTestQueue(t), discardLogger())

		_, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			SenderID: inactive.ID,
			To:       "alice@example.com",
			SendAt:   time.Now(),
		})
		assert.ErrorIs(t, err, scheduler.ErrSenderInactive)
	})
}

func TestScheduler_ScheduleBulk(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := testSender()

	t.Run("staggers recipients", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		q := newTestQueue(t)
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), q, discardLogger())

		start := time.Now().Add(10 * time.Minute)
		ids, err := s.ScheduleBulk(ctx, scheduler.BulkParams{
			SenderID:     sender.ID,
			Recipients:   []string{"a@example.com", "b@example.com", "c@example.com"},
			Subject:      "hello",
			Body:         "bulk",
			StartTime:    start,
			DelayBetween: 5 * time.Minute,
		})
		require.NoError(t, err)
		require.Len(t, ids, 3)

		for i, id := range ids {
			email, err := emails.GetByID(ctx, id)
			require.NoError(t, err)
			want := start.Add(time.Duration(i) * 5 * time.Minute)
			assert.Equal(t, want, email.ScheduledAt, "recipient %d", i)

			job, err := q.Lookup(ctx, email.JobID)
			require.NoError(t, err)
			assert.WithinDuration(t, want, job.RunAt, 2*time.Second)
		}
	})

	t.Run("rejects whole batch on one bad address", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), newTestQueue(t), discardLogger())

		_, err := s.ScheduleBulk(ctx, scheduler.BulkParams{
			SenderID:   sender.ID,
			Recipients: []string{"a@example.com", "broken", "c@example.com"},
			Subject:    "hello",
			StartTime:  time.Now(),
		})
		assert.ErrorIs(t, err, scheduler.ErrInvalidRecipient)

		got, err := emails.List(ctx, scheduler.EmailFilter{})
		require.NoError(t, err)
		assert.Empty(t, got, "no records should be created for a rejected batch")
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		s := scheduler.NewScheduler(newFakeEmailStore(), newFakeSenderStore(sender), newTestQueue(t), discardLogger())

		_, err := s.ScheduleBulk(ctx, scheduler.BulkParams{SenderID: sender.ID})
		assert.ErrorIs(t, err, scheduler.ErrNoRecipients)
	})
}

func TestScheduler_Cancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sender := testSender()

	t.Run("removes record and job", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		q := newTestQueue(t)
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), q, discardLogger())

		id, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			SenderID: sender.ID,
			To:       "alice@example.com",
			Subject:  "hello",
			SendAt:   time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		require.NoError(t, s.Cancel(ctx, id))

		_, err = emails.GetByID(ctx, id)
		assert.ErrorIs(t, err, scheduler.ErrEmailNotFound)
		_, err = q.Lookup(ctx, "email-"+id.String())
		assert.ErrorIs(t, err, queue.ErrJobNotFound)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()

		s := scheduler.NewScheduler(newFakeEmailStore(), newFakeSenderStore(sender), newTestQueue(t), discardLogger())
		assert.ErrorIs(t, s.Cancel(ctx, uuid.New()), scheduler.ErrEmailNotFound)
	})

	t.Run("job already claimed", func(t *testing.T) {
		t.Parallel()

		emails := newFakeEmailStore()
		storage := queue.NewMemoryStorage()
		q, err := queue.New(storage)
		require.NoError(t, err)
		s := scheduler.NewScheduler(emails, newFakeSenderStore(sender), q, discardLogger())

		id, err := s.ScheduleOne(ctx, scheduler.ScheduleParams{
			SenderID: sender.ID,
			To:       "alice@example.com",
			Subject:  "hello",
			SendAt:   time.Now().Add(-time.Second),
		})
		require.NoError(t, err)

		_, err = storage.ClaimJob(ctx, time.Minute)
		require.NoError(t, err)

		assert.ErrorIs(t, s.Cancel(ctx, id), scheduler.ErrEmailProcessing)

		_, err = emails.GetByID(ctx, id)
		assert.NoError(t, err, "record stays while the job is in flight")
	})
}
