package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sendlater/sendlater/pkg/mailer"
	"github.com/sendlater/sendlater/pkg/queue"
	"github.com/sendlater/sendlater/pkg/ratelimit"
)

// Processor executes claimed send jobs. It re-reads the record before every
// attempt, consumes one slot of the sender's hourly quota, and either sends
// through the mail transport or parks the job in the next hour window.
type Processor struct {
	emails    EmailStore
	limiter   *ratelimit.Limiter
	mail      mailer.Mailer
	queue     *queue.Queue
	sendDelay time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithSendDelay makes each attempt pause before contacting the transport,
// spacing sends out to stay under provider burst thresholds.
func WithSendDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.sendDelay = d
		}
	}
}

// WithProcessorClock overrides the wall clock, for tests.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor wires the send-side of the pipeline.
func NewProcessor(emails EmailStore, limiter *ratelimit.Limiter, mail mailer.Mailer, q *queue.Queue, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		emails:  emails,
		limiter: limiter,
		mail:    mail,
		queue:   q,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one claimed job. Returning nil completes the job; returning
// an error hands it back to the queue's retry policy.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	var payload SendPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("scheduler: malformed payload in job %q: %w", job.ID, err)
	}

	log := p.logger.With(
		slog.String("job_id", job.ID),
		slog.String("email_id", payload.EmailID.String()),
		slog.String("sender_id", payload.SenderID.String()))

	// The record is the source of truth: a job whose record was canceled
	// between enqueue and claim is simply dropped.
	email, err := p.emails.GetByID(ctx, payload.EmailID)
	if err != nil {
		if errors.Is(err, ErrEmailNotFound) {
			log.InfoContext(ctx, "email record gone, dropping job")
			return nil
		}
		return fmt.Errorf("scheduler: failed to load email %s: %w", payload.EmailID, err)
	}
	if email.Status == StatusSent {
		log.InfoContext(ctx, "email already sent, dropping job")
		return nil
	}

	if err := p.emails.UpdateStatus(ctx, email.ID, StatusProcessing); err != nil {
		return fmt.Errorf("scheduler: failed to mark email %s processing: %w", email.ID, err)
	}

	res, err := p.limiter.Admit(ctx, payload.SenderID.String(), payload.HourlyLimit)
	if err != nil {
		return fmt.Errorf("scheduler: rate limiter check failed for sender %s: %w", payload.SenderID, err)
	}
	if !res.Allowed {
		return p.deferToNextWindow(ctx, log, payload, res)
	}

	if p.sendDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.sendDelay):
		}
	}

	result, err := p.mail.Send(ctx, mailer.Params{
		To:      payload.To,
		Subject: payload.Subject,
		Body:    payload.Body,
		From:    payload.FromEmail,
		Credentials: mailer.Credentials{
			Username: payload.Username,
			Password: payload.Password,
		},
	})
	if err != nil {
		if markErr := p.emails.MarkFailed(ctx, email.ID, err.Error()); markErr != nil {
			log.ErrorContext(ctx, "failed to record send failure", slog.String("error", markErr.Error()))
		}
		return fmt.Errorf("scheduler: send failed for email %s: %w", email.ID, err)
	}

	if err := p.emails.MarkSent(ctx, email.ID, p.now()); err != nil {
		return fmt.Errorf("scheduler: failed to mark email %s sent: %w", email.ID, err)
	}

	log.InfoContext(ctx, "email sent",
		slog.String("message_id", result.MessageID),
		slog.Int64("quota_used", res.Current),
		slog.Int("quota_limit", res.Limit))
	return nil
}

// deferToNextWindow parks a rate-limited email: a fresh job delayed until the
// quota window rolls over, and the record returned to SCHEDULED pointing at
// it. RATE_LIMITED is only a transient mark while the deferral is in flight;
// should the process die mid-defer, the reconciler adopts the record from it.
// The current job completes normally; the retry is a new job, not a re-run.
func (p *Processor) deferToNextWindow(ctx context.Context, log *slog.Logger, payload SendPayload, res ratelimit.Result) error {
	retryAt := p.now().Add(res.RetryAfter)
	newJobID := retryJobID(payload.EmailID, p.now())

	if err := p.emails.MarkRateLimited(ctx, payload.EmailID); err != nil {
		return fmt.Errorf("scheduler: failed to mark email %s rate limited: %w", payload.EmailID, err)
	}
	if err := p.queue.Enqueue(ctx, newJobID, payload, res.RetryAfter); err != nil {
		return fmt.Errorf("scheduler: failed to enqueue rate-limit retry for email %s: %w", payload.EmailID, err)
	}
	if err := p.emails.Reschedule(ctx, payload.EmailID, newJobID, retryAt); err != nil {
		return fmt.Errorf("scheduler: failed to reschedule email %s: %w", payload.EmailID, err)
	}

	log.WarnContext(ctx, "sender quota exhausted, deferred to next window",
		slog.Int("limit", res.Limit),
		slog.Time("retry_at", retryAt),
		slog.String("retry_job_id", newJobID))
	return nil
}
