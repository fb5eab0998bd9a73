package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job hash fields.
const (
	fieldPayload     = "payload"
	fieldStatus      = "status"
	fieldAttempts    = "attempts"
	fieldMaxAttempts = "max_attempts"
	fieldBackoffMs   = "backoff_ms"
	fieldRunAtMs     = "run_at_ms"
	fieldCreatedAtMs = "created_at_ms"
	fieldProcAtMs    = "processed_at_ms"
	fieldError       = "error"
)

// createScript persists a job hash and registers it in the scheduled set,
// refusing duplicate ids.
//
// KEYS[1] job hash, KEYS[2] scheduled zset.
// ARGV: id, payload, run_at_ms, created_at_ms, max_attempts, backoff_ms.
var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1],
	"payload", ARGV[2],
	"status", "pending",
	"attempts", 0,
	"max_attempts", ARGV[5],
	"backoff_ms", ARGV[6],
	"run_at_ms", ARGV[3],
	"created_at_ms", ARGV[4],
	"error", "")
redis.call("ZADD", KEYS[2], tonumber(ARGV[3]), ARGV[1])
return 1
`)

// claimScript leases the earliest runnable job. Expired leases are returned
// to the scheduled set first, so jobs claimed by a crashed worker become
// runnable again. Scripts execute atomically, which is what makes the lease
// safe across worker processes.
//
// KEYS[1] scheduled zset, KEYS[2] active zset.
// ARGV: now_ms, lock_ms, job key prefix.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local expired = redis.call("ZRANGEBYSCORE", KEYS[2], "-inf", now, "LIMIT", 0, 100)
for _, id in ipairs(expired) do
	redis.call("ZREM", KEYS[2], id)
	redis.call("ZADD", KEYS[1], now, id)
	redis.call("HSET", ARGV[3] .. id, "status", "pending")
end
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", now, "LIMIT", 0, 1)
if #ids == 0 then
	return false
end
local id = ids[1]
redis.call("ZREM", KEYS[1], id)
redis.call("ZADD", KEYS[2], now + tonumber(ARGV[2]), id)
redis.call("HSET", ARGV[3] .. id, "status", "active")
return id
`)

// releaseScript puts a leased job back in the scheduled set without touching
// its attempt counter, for workers that give a claim back unprocessed.
//
// KEYS[1] scheduled zset, KEYS[2] active zset.
// ARGV: id, job key prefix, now_ms.
var releaseScript = redis.NewScript(`
local key = ARGV[2] .. ARGV[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
if redis.call("ZREM", KEYS[2], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", key, "status", "pending", "run_at_ms", ARGV[3])
redis.call("ZADD", KEYS[1], tonumber(ARGV[3]), ARGV[1])
return 1
`)

// completeScript finalizes a job and applies the completed retention policy:
// trim by age via score, trim by count via rank, and expire the hash so the
// entry disappears entirely once the age window passes.
//
// KEYS[1] active zset, KEYS[2] completed zset.
// ARGV: id, now_ms, job key prefix, retention_age_ms, retention_count.
var completeScript = redis.NewScript(`
local key = ARGV[3] .. ARGV[1]
if redis.call("EXISTS", key) == 0 then
	return 0
end
local now = tonumber(ARGV[2])
redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("HSET", key, "status", "completed", "processed_at_ms", now)
redis.call("PEXPIRE", key, ARGV[4])
redis.call("ZADD", KEYS[2], now, ARGV[1])
redis.call("ZREMRANGEBYSCORE", KEYS[2], "-inf", now - tonumber(ARGV[4]))
local excess = redis.call("ZCARD", KEYS[2]) - tonumber(ARGV[5])
if excess > 0 then
	redis.call("ZREMRANGEBYRANK", KEYS[2], 0, excess - 1)
end
return 1
`)

// failScript records a failed attempt: reschedule with exponential backoff
// while attempts remain, otherwise mark failed and apply the failed
// retention policy.
//
// KEYS[1] active zset, KEYS[2] scheduled zset, KEYS[3] failed zset.
// ARGV: id, error, now_ms, job key prefix, retention_age_ms, retention_count.
var failScript = redis.NewScript(`
local key = ARGV[4] .. ARGV[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local now = tonumber(ARGV[3])
local attempts = redis.call("HINCRBY", key, "attempts", 1)
redis.call("HSET", key, "error", ARGV[2])
redis.call("ZREM", KEYS[1], ARGV[1])
local max = tonumber(redis.call("HGET", key, "max_attempts"))
if attempts < max then
	local backoff = tonumber(redis.call("HGET", key, "backoff_ms"))
	local run_at = now + backoff * 2 ^ (attempts - 1)
	redis.call("HSET", key, "status", "pending", "run_at_ms", run_at)
	redis.call("ZADD", KEYS[2], run_at, ARGV[1])
	return 1
end
redis.call("HSET", key, "status", "failed", "processed_at_ms", now)
redis.call("PEXPIRE", key, ARGV[5])
redis.call("ZADD", KEYS[3], now, ARGV[1])
redis.call("ZREMRANGEBYSCORE", KEYS[3], "-inf", now - tonumber(ARGV[5]))
local excess = redis.call("ZCARD", KEYS[3]) - tonumber(ARGV[6])
if excess > 0 then
	redis.call("ZREMRANGEBYRANK", KEYS[3], 0, excess - 1)
end
return 0
`)

// removeScript deletes a job unless it is currently leased.
//
// KEYS[1] scheduled, KEYS[2] active, KEYS[3] completed, KEYS[4] failed.
// ARGV: id, job key prefix.
var removeScript = redis.NewScript(`
if redis.call("ZSCORE", KEYS[2], ARGV[1]) then
	return -1
end
local removed = redis.call("DEL", ARGV[2] .. ARGV[1])
redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("ZREM", KEYS[3], ARGV[1])
redis.call("ZREM", KEYS[4], ARGV[1])
return removed
`)

// RedisStorage implements Storage over a shared Redis instance. Each job is
// a hash; pending, active, completed, and failed jobs are tracked in sorted
// sets scored by run time, lease deadline, and finish time respectively.
type RedisStorage struct {
	client    *redis.Client
	prefix    string
	retention RetentionPolicy
}

// RedisStorageOption configures a RedisStorage.
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix namespaces all queue keys, allowing several queues to share
// one Redis database.
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetention sets the retention policy for finished jobs.
func WithRetention(p RetentionPolicy) RedisStorageOption {
	return func(s *RedisStorage) { s.retention = p }
}

// NewRedisStorage creates a Redis-backed queue storage.
func NewRedisStorage(client *redis.Client, opts ...RedisStorageOption) *RedisStorage {
	s := &RedisStorage{
		client: client,
		prefix: "sendlater:queue",
		retention: RetentionPolicy{
			CompletedCount: 1000,
			CompletedAge:   24 * time.Hour,
			FailedCount:    5000,
			FailedAge:      7 * 24 * time.Hour,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStorage) jobKeyPrefix() string { return s.prefix + ":job:" }
func (s *RedisStorage) jobKey(id string) string {
	return s.jobKeyPrefix() + id
}
func (s *RedisStorage) scheduledKey() string { return s.prefix + ":scheduled" }
func (s *RedisStorage) activeKey() string    { return s.prefix + ":active" }
func (s *RedisStorage) completedKey() string { return s.prefix + ":completed" }
func (s *RedisStorage) failedKey() string    { return s.prefix + ":failed" }

func (s *RedisStorage) CreateJob(ctx context.Context, job *Job) error {
	created, err := createScript.Run(ctx, s.client,
		[]string{s.jobKey(job.ID), s.scheduledKey()},
		job.ID,
		string(job.Payload),
		job.RunAt.UnixMilli(),
		job.CreatedAt.UnixMilli(),
		job.MaxAttempts,
		job.Backoff.Milliseconds(),
	).Int()
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if created == 0 {
		return ErrJobExists
	}
	return nil
}

func (s *RedisStorage) GetJob(ctx context.Context, id string) (*Job, error) {
	fields, err := s.client.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}
	return jobFromHash(id, fields)
}

func (s *RedisStorage) RemoveJob(ctx context.Context, id string) error {
	res, err := removeScript.Run(ctx, s.client,
		[]string{s.scheduledKey(), s.activeKey(), s.completedKey(), s.failedKey()},
		id, s.jobKeyPrefix(),
	).Int()
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	switch res {
	case -1:
		return ErrJobActive
	case 0:
		return ErrJobNotFound
	}
	return nil
}

func (s *RedisStorage) ClaimJob(ctx context.Context, lockDuration time.Duration) (*Job, error) {
	id, err := claimScript.Run(ctx, s.client,
		[]string{s.scheduledKey(), s.activeKey()},
		time.Now().UnixMilli(),
		lockDuration.Milliseconds(),
		s.jobKeyPrefix(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoJobToClaim
	}
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return s.GetJob(ctx, id)
}

func (s *RedisStorage) ReleaseJob(ctx context.Context, id string) error {
	res, err := releaseScript.Run(ctx, s.client,
		[]string{s.scheduledKey(), s.activeKey()},
		id,
		s.jobKeyPrefix(),
		time.Now().UnixMilli(),
	).Int()
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if res == -1 {
		return ErrJobNotFound
	}
	return nil
}

func (s *RedisStorage) CompleteJob(ctx context.Context, id string) error {
	res, err := completeScript.Run(ctx, s.client,
		[]string{s.activeKey(), s.completedKey()},
		id,
		time.Now().UnixMilli(),
		s.jobKeyPrefix(),
		s.retention.CompletedAge.Milliseconds(),
		s.retention.CompletedCount,
	).Int()
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if res == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *RedisStorage) FailJob(ctx context.Context, id string, errMsg string) (bool, error) {
	res, err := failScript.Run(ctx, s.client,
		[]string{s.activeKey(), s.scheduledKey(), s.failedKey()},
		id,
		errMsg,
		time.Now().UnixMilli(),
		s.jobKeyPrefix(),
		s.retention.FailedAge.Milliseconds(),
		s.retention.FailedCount,
	).Int()
	if err != nil {
		return false, errors.Join(ErrStorageUnavailable, err)
	}
	if res == -1 {
		return false, ErrJobNotFound
	}
	return res == 1, nil
}

func (s *RedisStorage) Counts(ctx context.Context) (Counts, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	pipe := s.client.Pipeline()
	waiting := pipe.ZCount(ctx, s.scheduledKey(), "-inf", now)
	delayed := pipe.ZCount(ctx, s.scheduledKey(), "("+now, "+inf")
	active := pipe.ZCard(ctx, s.activeKey())
	completed := pipe.ZCard(ctx, s.completedKey())
	failed := pipe.ZCard(ctx, s.failedKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Counts{}, errors.Join(ErrStorageUnavailable, err)
	}

	return Counts{
		Waiting:   waiting.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

func jobFromHash(id string, fields map[string]string) (*Job, error) {
	intField := func(name string) (int64, error) {
		v, ok := fields[name]
		if !ok || v == "" {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	}

	runAt, err := intField(fieldRunAtMs)
	if err != nil {
		return nil, fmt.Errorf("queue: corrupt job %q field %s: %w", id, fieldRunAtMs, err)
	}
	createdAt, err := intField(fieldCreatedAtMs)
	if err != nil {
		return nil, fmt.Errorf("queue: corrupt job %q field %s: %w", id, fieldCreatedAtMs, err)
	}
	attempts, err := intField(fieldAttempts)
	if err != nil {
		return nil, fmt.Errorf("queue: corrupt job %q field %s: %w", id, fieldAttempts, err)
	}
	maxAttempts, err := intField(fieldMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("queue: corrupt job %q field %s: %w", id, fieldMaxAttempts, err)
	}
	backoffMs, err := intField(fieldBackoffMs)
	if err != nil {
		return nil, fmt.Errorf("queue: corrupt job %q field %s: %w", id, fieldBackoffMs, err)
	}

	job := &Job{
		ID:          id,
		Payload:     []byte(fields[fieldPayload]),
		Status:      Status(fields[fieldStatus]),
		Attempts:    int(attempts),
		MaxAttempts: int(maxAttempts),
		Backoff:     time.Duration(backoffMs) * time.Millisecond,
		RunAt:       time.UnixMilli(runAt),
		CreatedAt:   time.UnixMilli(createdAt),
		Error:       fields[fieldError],
	}

	if procAt, err := intField(fieldProcAtMs); err == nil && procAt > 0 {
		t := time.UnixMilli(procAt)
		job.ProcessedAt = &t
	}

	return job, nil
}
