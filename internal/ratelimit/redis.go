package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares counters between instances. The window starts with the
// first INCR of a key and ends when the key expires.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store that namespaces its keys under "rl:".
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "rl:"}
}

func (s *RedisStore) Hit(ctx context.Context, key string, d time.Duration, now time.Time) (int, time.Time, error) {
	k := s.prefix + key

	count, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := s.rdb.PExpire(ctx, k, d).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("pexpire %s: %w", k, err)
		}
	}

	ttl, err := s.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("pttl %s: %w", k, err)
	}
	// A key left without expiry would throttle forever.
	if ttl < 0 {
		if err := s.rdb.PExpire(ctx, k, d).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("pexpire %s: %w", k, err)
		}
		ttl = d
	}
	return int(count), now.Add(ttl), nil
}
