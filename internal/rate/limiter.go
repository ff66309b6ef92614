package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "rlc"

// Limiter counts requests per (identity, action) inside a trailing window.
// Timestamps are sorted-set members scored by their unix-milli instant, so
// pruning is a range deletion and evaluation a range count.
type Limiter struct {
	redis redis.UniversalClient
	now   func() time.Time
}

// New creates a sliding-window [Limiter] backed by the given Redis client.
// now is the injected clock; pass time.Now outside of tests.
func New(redisClient redis.UniversalClient, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{redis: redisClient, now: now}
}

func counterKey(identity, action string) string {
	return counterKeyPrefix + ":" + identity + ":" + action
}

// Check evaluates and, when allowed, records one request for the
// (identity, action) pair. Prune, count, and append happen as one optimistic
// transaction per key. A denied request is not recorded.
func (l *Limiter) Check(ctx context.Context, identity, action string, limit int, window time.Duration) (bool, error) {
	const maxRetries = 4
	key := counterKey(identity, action)

	for i := 0; i < maxRetries; i++ {
		var allowed bool

		err := l.redis.Watch(ctx, func(tx *redis.Tx) error {
			now := l.now()
			cutoff := now.Add(-window).UnixMilli()
			cutoffArg := strconv.FormatInt(cutoff, 10)

			// Timestamps strictly inside the window count; a timestamp exactly
			// window old has aged out.
			count, err := tx.ZCount(ctx, key, "("+cutoffArg, "+inf").Result()
			if err != nil {
				return err
			}

			if count >= int64(limit) {
				allowed = false
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.ZRemRangeByScore(ctx, key, "-inf", cutoffArg)
					return nil
				})
				return err
			}

			allowed = true
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.ZRemRangeByScore(ctx, key, "-inf", cutoffArg)
				pipe.ZAdd(ctx, key, redis.Z{
					Score:  float64(now.UnixMilli()),
					Member: uuid.NewString(),
				})
				pipe.Expire(ctx, key, window)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
		}

		return allowed, nil
	}

	return false, fmt.Errorf("%w: transaction contention", ErrCounterUnavailable)
}

// Count returns the number of recorded requests currently inside the window
// without recording anything. Missing keys count as zero.
func (l *Limiter) Count(ctx context.Context, identity, action string, window time.Duration) (int, error) {
	cutoff := strconv.FormatInt(l.now().Add(-window).UnixMilli(), 10)

	count, err := l.redis.ZCount(ctx, counterKey(identity, action), "("+cutoff, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return int(count), nil
}

// Reset clears the counter for the (identity, action) pair.
func (l *Limiter) Reset(ctx context.Context, identity, action string) error {
	if err := l.redis.Del(ctx, counterKey(identity, action)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	return nil
}
