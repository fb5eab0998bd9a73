package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EmailFilter narrows list queries. Zero values mean "no constraint".
type EmailFilter struct {
	UserID   uuid.UUID
	Statuses []Status
	Limit    int
	Offset   int
}

// EmailStore persists email records. Implementations return ErrEmailNotFound
// for absent ids so callers can branch without knowing the backend.
type EmailStore interface {
	Create(ctx context.Context, email *Email) error
	GetByID(ctx context.Context, id uuid.UUID) (*Email, error)
	List(ctx context.Context, filter EmailFilter) ([]Email, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStatus moves the record to the given status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// MarkSent records a successful delivery.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// MarkFailed records a failed attempt: status FAILED, error message set,
	// retry count incremented in the same statement.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error

	// MarkRateLimited flags the record as having hit its sender's quota.
	// The mark is transient: once the deferred job is queued the record is
	// moved back to SCHEDULED via Reschedule.
	MarkRateLimited(ctx context.Context, id uuid.UUID) error

	// Reschedule points the record at a new job and time and returns it to
	// SCHEDULED.
	Reschedule(ctx context.Context, id uuid.UUID, jobID string, scheduledAt time.Time) error

	// SetJobID re-links the record to a new queue job.
	SetJobID(ctx context.Context, id uuid.UUID, jobID string) error

	// ListPending returns all records in a pending state (SCHEDULED or
	// RATE_LIMITED), regardless of schedule time.
	ListPending(ctx context.Context) ([]Email, error)

	// FailAllProcessing marks every PROCESSING record failed with the given
	// message and reports how many were affected.
	FailAllProcessing(ctx context.Context, errMsg string) (int64, error)
}

// SenderStore persists sending identities. Implementations return
// ErrSenderNotFound for absent ids.
type SenderStore interface {
	Create(ctx context.Context, sender *Sender) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sender, error)
	List(ctx context.Context) ([]Sender, error)
	Update(ctx context.Context, sender *Sender) error
	Delete(ctx context.Context, id uuid.UUID) error
}
