package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sendlater/sendlater/pkg/mailer"
	"github.com/sendlater/sendlater/pkg/queue"
)

// Scheduler accepts scheduling requests: it persists email records and
// enqueues delayed send jobs keyed by the record id.
type Scheduler struct {
	emails  EmailStore
	senders SenderStore
	queue   *queue.Queue
	logger  *slog.Logger
	now     func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the wall clock, for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler wires the scheduling front door.
func NewScheduler(emails EmailStore, senders SenderStore, q *queue.Queue, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		emails:  emails,
		senders: senders,
		queue:   q,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleParams describes a single email to schedule.
type ScheduleParams struct {
	UserID   uuid.UUID
	SenderID uuid.UUID
	To       string
	Subject  string
	Body     string
	SendAt   time.Time
}

// BulkParams describes a batch of emails sharing subject and body, delivered
// to each recipient with a fixed stagger.
type BulkParams struct {
	UserID       uuid.UUID
	SenderID     uuid.UUID
	Recipients   []string
	Subject      string
	Body         string
	StartTime    time.Time
	DelayBetween time.Duration

	// HourlyLimit is accepted for wire compatibility but has no effect; the
	// per-sender limit from the sender record governs throttling.
	HourlyLimit int
}

// ScheduleOne validates the request, persists a SCHEDULED record, and
// enqueues the send job. A past SendAt means "send now". When the enqueue
// fails after the record was written, the error is returned and the orphaned
// record is left for the reconciler to repair on the next startup.
func (s *Scheduler) ScheduleOne(ctx context.Context, p ScheduleParams) (uuid.UUID, error) {
	if !mailer.ValidAddress(p.To) {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, p.To)
	}

	sender, err := s.lookupSender(ctx, p.SenderID)
	if err != nil {
		return uuid.Nil, err
	}

	return s.schedule(ctx, sender, p)
}

// ScheduleBulk schedules one email per recipient, staggered by DelayBetween
// starting at StartTime. All recipients are validated before any record is
// created, so a bad address in the middle of the batch rejects the whole
// request instead of leaving a partial batch behind.
func (s *Scheduler) ScheduleBulk(ctx context.Context, p BulkParams) ([]uuid.UUID, error) {
	if len(p.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	for _, to := range p.Recipients {
		if !mailer.ValidAddress(to) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
		}
	}

	sender, err := s.lookupSender(ctx, p.SenderID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(p.Recipients))
	for i, to := range p.Recipients {
		id, err := s.schedule(ctx, sender, ScheduleParams{
			UserID:   p.UserID,
			SenderID: p.SenderID,
			To:       to,
			Subject:  p.Subject,
			Body:     p.Body,
			SendAt:   p.StartTime.Add(time.Duration(i) * p.DelayBetween),
		})
		if err != nil {
			return ids, fmt.Errorf("scheduler: bulk request failed at recipient %d of %d: %w", i+1, len(p.Recipients), err)
		}
		ids = append(ids, id)
	}

	s.logger.InfoContext(ctx, "bulk schedule accepted",
		slog.String("sender_id", p.SenderID.String()),
		slog.Int("recipients", len(ids)),
		slog.Time("start_time", p.StartTime),
		slog.Duration("delay_between", p.DelayBetween))

	return ids, nil
}

// Cancel removes a scheduled email: the queue job first, then the record.
// Canceling an email whose job is mid-flight fails with ErrEmailProcessing;
// in-flight attempts run to completion.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	email, err := s.emails.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if email.JobID != "" {
		if err := s.queue.Remove(ctx, email.JobID); err != nil {
			if errors.Is(err, queue.ErrJobActive) {
				return ErrEmailProcessing
			}
			return fmt.Errorf("scheduler: failed to remove job %q: %w", email.JobID, err)
		}
	}

	if err := s.emails.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "email canceled",
		slog.String("email_id", id.String()),
		slog.String("job_id", email.JobID))
	return nil
}

func (s *Scheduler) lookupSender(ctx context.Context, id uuid.UUID) (*Sender, error) {
	sender, err := s.senders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sender.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrSenderInactive, id)
	}
	return sender, nil
}

func (s *Scheduler) schedule(ctx context.Context, sender *Sender, p ScheduleParams) (uuid.UUID, error) {
	id := uuid.New()
	email := &Email{
		ID:          id,
		UserID:      p.UserID,
		SenderID:    p.SenderID,
		To:          p.To,
		Subject:     p.Subject,
		Body:        p.Body,
		Status:      StatusScheduled,
		ScheduledAt: p.SendAt,
		JobID:       jobID(id),
	}
	if err := s.emails.Create(ctx, email); err != nil {
		return uuid.Nil, fmt.Errorf("scheduler: failed to create email record: %w", err)
	}

	payload := SendPayload{
		EmailID:     id,
		To:          p.To,
		Subject:     p.Subject,
		Body:        p.Body,
		SenderID:    sender.ID,
		FromEmail:   sender.Email,
		Username:    sender.SMTPUser,
		Password:    sender.SMTPPass,
		HourlyLimit: sender.HourlyLimit,
	}
	delay := max(0, p.SendAt.Sub(s.now()))
	if err := s.queue.Enqueue(ctx, email.JobID, payload, delay); err != nil {
		return uuid.Nil, fmt.Errorf("scheduler: failed to enqueue job %q: %w", email.JobID, err)
	}

	s.logger.InfoContext(ctx, "email scheduled",
		slog.String("email_id", id.String()),
		slog.String("job_id", email.JobID),
		slog.String("sender_id", sender.ID.String()),
		slog.Time("send_at", p.SendAt))

	return id, nil
}
