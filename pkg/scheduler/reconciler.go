package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendlater/sendlater/pkg/queue"
)

// stuckProcessingMessage is recorded on emails whose send was cut off by a
// crash or restart. The record moves to FAILED so operators can requeue it
// deliberately; an automatic resend could double-deliver.
const stuckProcessingMessage = "interrupted by server restart"

// Reconciler repairs queue/database drift after a restart. It is meant to run
// once during startup, before the worker begins claiming jobs, and is safe to
// run repeatedly.
type Reconciler struct {
	emails  EmailStore
	senders SenderStore
	queue   *queue.Queue
	logger  *slog.Logger
	now     func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerClock overrides the wall clock, for tests.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler wires the startup repair pass.
func NewReconciler(emails EmailStore, senders SenderStore, q *queue.Queue, logger *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		emails:  emails,
		senders: senders,
		queue:   q,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes both repair passes. It fails only when a store-level query
// fails; individual record repairs are contained and logged so one bad row
// cannot block the rest of startup.
func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.resyncPending(ctx); err != nil {
		return err
	}
	return r.failStuckProcessing(ctx)
}

// resyncPending re-enqueues pending records whose job vanished with the
// queue's previous state. Records that still have a live job are untouched.
func (r *Reconciler) resyncPending(ctx context.Context) error {
	pending, err := r.emails.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: failed to list pending emails: %w", err)
	}

	var resynced, healthy int
	for i := range pending {
		email := &pending[i]

		if email.JobID != "" {
			_, err := r.queue.Lookup(ctx, email.JobID)
			if err == nil {
				healthy++
				continue
			}
			if !errors.Is(err, queue.ErrJobNotFound) {
				r.logger.ErrorContext(ctx, "failed to check job during reconcile",
					slog.String("email_id", email.ID.String()),
					slog.String("job_id", email.JobID),
					slog.String("error", err.Error()))
				continue
			}
		}

		if err := r.resync(ctx, email); err != nil {
			r.logger.ErrorContext(ctx, "failed to resync email",
				slog.String("email_id", email.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		resynced++
	}

	r.logger.InfoContext(ctx, "reconciled pending emails",
		slog.Int("checked", len(pending)),
		slog.Int("healthy", healthy),
		slog.Int("resynced", resynced))
	return nil
}

func (r *Reconciler) resync(ctx context.Context, email *Email) error {
	sender, err := r.senders.GetByID(ctx, email.SenderID)
	if err != nil {
		return fmt.Errorf("sender lookup: %w", err)
	}

	payload := SendPayload{
		EmailID:     email.ID,
		To:          email.To,
		Subject:     email.Subject,
		Body:        email.Body,
		SenderID:    sender.ID,
		FromEmail:   sender.Email,
		Username:    sender.SMTPUser,
		Password:    sender.SMTPPass,
		HourlyLimit: sender.HourlyLimit,
	}

	now := r.now()
	newJobID := resyncJobID(email.ID, now)
	delay := max(0, email.ScheduledAt.Sub(now))

	if err := r.queue.Enqueue(ctx, newJobID, payload, delay); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if err := r.emails.SetJobID(ctx, email.ID, newJobID); err != nil {
		return fmt.Errorf("set job id: %w", err)
	}

	r.logger.InfoContext(ctx, "resynced email",
		slog.String("email_id", email.ID.String()),
		slog.String("old_job_id", email.JobID),
		slog.String("new_job_id", newJobID),
		slog.Duration("delay", delay))
	return nil
}

// failStuckProcessing fails records the previous process left mid-send.
func (r *Reconciler) failStuckProcessing(ctx context.Context) error {
	n, err := r.emails.FailAllProcessing(ctx, stuckProcessingMessage)
	if err != nil {
		return fmt.Errorf("scheduler: failed to fail stuck processing emails: %w", err)
	}
	if n > 0 {
		r.logger.WarnContext(ctx, "failed emails stuck in processing state", slog.Int64("count", n))
	}
	return nil
}
