package queue

import "time"

type Config struct {
	Concurrency     int           `env:"WORKER_CONCURRENCY" envDefault:"5"`     // Concurrency is the number of jobs processed in parallel.
	PullInterval    time.Duration `env:"QUEUE_PULL_INTERVAL" envDefault:"1s"`   // PullInterval is how often idle worker slots poll for jobs.
	LockTimeout     time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"2m"`    // LockTimeout bounds a single lease; expired leases are re-claimed.
	MinSendInterval time.Duration `env:"MIN_DELAY_BETWEEN_SENDS" envDefault:"2s"` // MinSendInterval is the minimum spacing between job starts across the whole pool.

	MaxAttempts int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"` // MaxAttempts caps processing attempts per job.
	Backoff     time.Duration `env:"QUEUE_BACKOFF" envDefault:"5s"`     // Backoff is the exponential backoff base between attempts.

	CompletedRetentionCount int           `env:"QUEUE_COMPLETED_RETENTION_COUNT" envDefault:"1000"` // Completed jobs kept, at most.
	CompletedRetentionAge   time.Duration `env:"QUEUE_COMPLETED_RETENTION_AGE" envDefault:"24h"`    // Completed jobs kept, at longest.
	FailedRetentionCount    int           `env:"QUEUE_FAILED_RETENTION_COUNT" envDefault:"5000"`    // Failed jobs kept, at most.
	FailedRetentionAge      time.Duration `env:"QUEUE_FAILED_RETENTION_AGE" envDefault:"168h"`      // Failed jobs kept, at longest.
}

// Retention extracts the retention policy from the config.
func (c Config) Retention() RetentionPolicy {
	return RetentionPolicy{
		CompletedCount: c.CompletedRetentionCount,
		CompletedAge:   c.CompletedRetentionAge,
		FailedCount:    c.FailedRetentionCount,
		FailedAge:      c.FailedRetentionAge,
	}
}
