package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript performs the whole increment-compare-revert sequence server
// side. Redis executes scripts atomically, so concurrent admissions on the
// same window key serialize and the counter can never settle above the limit.
var admitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if count > tonumber(ARGV[1]) then
	redis.call("DECR", KEYS[1])
	return {count - 1, 0}
end
return {count, 1}
`)

// RedisStore implements Store over a shared Redis instance, making admission
// decisions consistent across worker processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Admit(ctx context.Context, key string, limit int, ttl time.Duration) (int64, bool, error) {
	res, err := admitScript.Run(ctx, s.client, []string{key}, limit, int(ttl/time.Second)).Slice()
	if err != nil {
		return 0, false, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("%w: unexpected count type %T", ErrStoreUnavailable, res[0])
	}
	allowed, _ := res[1].(int64)

	return count, allowed == 1, nil
}

func (s *RedisStore) Count(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return count, nil
}
