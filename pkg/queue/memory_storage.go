package queue

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for tests and local development. It
// mirrors the Redis storage semantics, including lease expiry and retention,
// but shares nothing between processes.
type MemoryStorage struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	leases    map[string]time.Time
	finished  map[string]time.Time
	retention RetentionPolicy
	now       func() time.Time
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithMemoryRetention sets the retention policy for finished jobs.
func WithMemoryRetention(p RetentionPolicy) MemoryStorageOption {
	return func(s *MemoryStorage) { s.retention = p }
}

// WithMemoryClock overrides the time source, used in tests.
func WithMemoryClock(now func() time.Time) MemoryStorageOption {
	return func(s *MemoryStorage) { s.now = now }
}

// NewMemoryStorage creates an empty in-memory queue storage.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{
		jobs:     make(map[string]*Job),
		leases:   make(map[string]time.Time),
		finished: make(map[string]time.Time),
		retention: RetentionPolicy{
			CompletedCount: 1000,
			CompletedAge:   24 * time.Hour,
			FailedCount:    5000,
			FailedAge:      7 * 24 * time.Hour,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) CreateJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrJobExists
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *MemoryStorage) GetJob(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *MemoryStorage) RemoveJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status == StatusActive && s.leases[id].After(s.now()) {
		return ErrJobActive
	}
	delete(s.jobs, id)
	delete(s.leases, id)
	delete(s.finished, id)
	return nil
}

func (s *MemoryStorage) ClaimJob(_ context.Context, lockDuration time.Duration) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Expired leases go back to pending before the next claim is picked.
	for id, deadline := range s.leases {
		if !deadline.After(now) {
			if job, ok := s.jobs[id]; ok {
				job.Status = StatusPending
				job.RunAt = now
			}
			delete(s.leases, id)
		}
	}

	var next *Job
	for _, job := range s.jobs {
		if job.Status != StatusPending || job.RunAt.After(now) {
			continue
		}
		if next == nil || job.RunAt.Before(next.RunAt) {
			next = job
		}
	}
	if next == nil {
		return nil, ErrNoJobToClaim
	}

	next.Status = StatusActive
	s.leases[next.ID] = now.Add(lockDuration)
	clone := *next
	return &clone, nil
}

func (s *MemoryStorage) ReleaseJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusActive {
		return nil
	}
	job.Status = StatusPending
	job.RunAt = s.now()
	delete(s.leases, id)
	return nil
}

func (s *MemoryStorage) CompleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	now := s.now()
	job.Status = StatusCompleted
	job.ProcessedAt = &now
	delete(s.leases, id)
	s.finished[id] = now
	s.applyRetention(StatusCompleted, s.retention.CompletedCount, s.retention.CompletedAge)
	return nil
}

func (s *MemoryStorage) FailJob(_ context.Context, id string, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, ErrJobNotFound
	}
	now := s.now()
	job.Attempts++
	job.Error = errMsg
	delete(s.leases, id)

	if job.Attempts < job.MaxAttempts {
		backoff := time.Duration(float64(job.Backoff) * math.Pow(2, float64(job.Attempts-1)))
		job.Status = StatusPending
		job.RunAt = now.Add(backoff)
		return true, nil
	}

	job.Status = StatusFailed
	job.ProcessedAt = &now
	s.finished[id] = now
	s.applyRetention(StatusFailed, s.retention.FailedCount, s.retention.FailedAge)
	return false, nil
}

func (s *MemoryStorage) Counts(_ context.Context) (Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var c Counts
	for _, job := range s.jobs {
		switch job.Status {
		case StatusPending:
			if job.RunAt.After(now) {
				c.Delayed++
			} else {
				c.Waiting++
			}
		case StatusActive:
			c.Active++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
	}
	return c, nil
}

// applyRetention drops finished jobs beyond the age cap, then the oldest
// beyond the count cap. Callers hold the lock.
func (s *MemoryStorage) applyRetention(status Status, maxCount int, maxAge time.Duration) {
	now := s.now()

	type entry struct {
		id string
		at time.Time
	}
	var entries []entry
	for id, at := range s.finished {
		job, ok := s.jobs[id]
		if !ok || job.Status != status {
			continue
		}
		if now.Sub(at) > maxAge {
			delete(s.jobs, id)
			delete(s.finished, id)
			continue
		}
		entries = append(entries, entry{id, at})
	}

	if len(entries) <= maxCount {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	for _, e := range entries[:len(entries)-maxCount] {
		delete(s.jobs, e.id)
		delete(s.finished, e.id)
	}
}
