package queue

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is a durable queue entry.
type Job struct {
	ID          string          `json:"id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      Status          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Backoff     time.Duration   `json:"backoff"`
	RunAt       time.Time       `json:"run_at"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Counts reports queue depth by state for health and stats endpoints.
// Waiting jobs are runnable now; delayed jobs have a future RunAt.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// RetentionPolicy bounds how long finished jobs stay visible. Whichever of
// the count and age caps is hit first wins.
type RetentionPolicy struct {
	CompletedCount int
	CompletedAge   time.Duration
	FailedCount    int
	FailedAge      time.Duration
}
