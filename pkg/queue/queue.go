package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Queue is the enqueue-side API over a Storage.
type Queue struct {
	storage     Storage
	maxAttempts int
	backoff     time.Duration
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxAttempts sets the attempt cap attached to enqueued jobs.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithBackoff sets the exponential backoff base attached to enqueued jobs.
func WithBackoff(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.backoff = d
		}
	}
}

// New creates a Queue over the given storage.
func New(storage Storage, opts ...Option) (*Queue, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	q := &Queue{
		storage:     storage,
		maxAttempts: 3,
		backoff:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue adds a job under the caller-chosen id, runnable once delay has
// elapsed. The retry policy (attempt cap, backoff base) is attached here.
func (q *Queue) Enqueue(ctx context.Context, id string, payload any, delay time.Duration) error {
	if id == "" {
		return ErrEmptyJobID
	}
	if payload == nil {
		return ErrPayloadNil
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal payload of type %T: %w", payload, err)
	}

	if delay < 0 {
		delay = 0
	}
	now := time.Now()

	job := &Job{
		ID:          id,
		Payload:     payloadBytes,
		Status:      StatusPending,
		MaxAttempts: q.maxAttempts,
		Backoff:     q.backoff,
		RunAt:       now.Add(delay),
		CreatedAt:   now,
	}

	if err := q.storage.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("queue: failed to create job %q: %w", id, err)
	}
	return nil
}

// Lookup returns the job with the given id, or an error wrapping
// ErrJobNotFound when it is absent (including jobs already garbage-collected
// by retention).
func (q *Queue) Lookup(ctx context.Context, id string) (*Job, error) {
	if id == "" {
		return nil, ErrEmptyJobID
	}
	return q.storage.GetJob(ctx, id)
}

// Remove deletes a pending job. It is idempotent: removing an already-absent
// job is not an error. Removing a leased job fails with ErrJobActive because
// in-flight attempts run to completion.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyJobID
	}

	err := q.storage.RemoveJob(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		return nil
	}
	return err
}

// Counts reports queue depth by state.
func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	return q.storage.Counts(ctx)
}
