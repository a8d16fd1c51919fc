package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps counters in Redis so every replica shares one ceiling.
type RedisCounter struct {
	redis redis.UniversalClient
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{redis: client}
}

// IncrementAndCheck creates the key with its expiry and increments it in one
// MULTI/EXEC, so a counter can never be left without a TTL.
func (r *RedisCounter) IncrementAndCheck(ctx context.Context, key string, window time.Duration, ceiling int) (bool, error) {
	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	return incr.Val() <= int64(ceiling), nil
}
