package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an email record. Values are stored
// verbatim in the database.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusProcessing  Status = "PROCESSING"
	StatusSent        Status = "SENT"
	StatusFailed      Status = "FAILED"
	StatusRateLimited Status = "RATE_LIMITED"
)

// PendingStatuses are the states the reconciler considers undelivered work.
var PendingStatuses = []Status{StatusScheduled, StatusRateLimited}

// Email is a scheduled message record.
type Email struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	SenderID     uuid.UUID  `json:"sender_id"`
	To           string     `json:"to"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	Status       Status     `json:"status"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RetryCount   int        `json:"retry_count"`
	JobID        string     `json:"job_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Sender is a configured sending identity with its own transport credentials
// and hourly quota.
type Sender struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	SMTPUser    string    `json:"smtp_user"`
	SMTPPass    string    `json:"-"`
	HourlyLimit int       `json:"hourly_limit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SendPayload is the job payload carried through the queue. It is
// self-contained so a job can be processed without a sender lookup.
type SendPayload struct {
	EmailID     uuid.UUID `json:"email_id"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	SenderID    uuid.UUID `json:"sender_id"`
	FromEmail   string    `json:"from_email"`
	Username    string    `json:"username"`
	Password    string    `json:"password"`
	HourlyLimit int       `json:"hourly_limit"`
}

// Job id schemes. Retry and resync jobs get fresh ids because finished job
// ids may linger in the queue's retention window and collide on re-enqueue.
func jobID(emailID uuid.UUID) string {
	return fmt.Sprintf("email-%s", emailID)
}

func retryJobID(emailID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("email-%s-retry-%d", emailID, now.UnixMilli())
}

func resyncJobID(emailID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("email-%s-resync-%d", emailID, now.UnixMilli())
}
