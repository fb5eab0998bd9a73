package queue

import (
	"context"
	"time"
)

// Storage encapsulates all persistence concerns of the queue. Implementations
// must make ClaimJob and FailJob atomic with respect to concurrent callers,
// because multiple worker processes may lease from the same store.
type Storage interface {
	// CreateJob persists a new pending job. Returns ErrJobExists when a job
	// with the same id is already present.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns the job with the given id, or ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*Job, error)

	// RemoveJob deletes a job that is not currently leased. Removing an
	// absent job returns ErrJobNotFound; removing a leased job returns
	// ErrJobActive.
	RemoveJob(ctx context.Context, id string) error

	// ClaimJob atomically leases the next runnable job (RunAt <= now) for
	// lockDuration. Returns ErrNoJobToClaim when nothing is runnable.
	// Jobs whose previous lease expired become runnable again.
	ClaimJob(ctx context.Context, lockDuration time.Duration) (*Job, error)

	// ReleaseJob hands a leased job back to pending without recording an
	// attempt, leaving it immediately claimable. Releasing a job that is
	// not leased is a no-op; an absent job returns ErrJobNotFound.
	ReleaseJob(ctx context.Context, id string) error

	// CompleteJob marks a leased job completed and applies the completed
	// retention policy.
	CompleteJob(ctx context.Context, id string) error

	// FailJob records a failed attempt. While attempts remain the job is
	// rescheduled with exponential backoff and retrying is true; once the
	// attempt cap is exhausted the job is marked failed, the failed
	// retention policy is applied, and retrying is false.
	FailJob(ctx context.Context, id string, errMsg string) (retrying bool, err error)

	// Counts reports queue depth by state.
	Counts(ctx context.Context) (Counts, error)
}
