package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studentreg/internal/ratelimit/models"
)

const bucketKeyPrefix = "ratelimit:"

// RedisBucketStore keeps each window as a sorted set of admission times so
// replicas share one budget per key.
type RedisBucketStore struct {
	client *redis.Client
	clock  func() time.Time
}

// NewRedisBucketStore uses client; clock may be nil.
func NewRedisBucketStore(client *redis.Client, clock func() time.Time) *RedisBucketStore {
	if clock == nil {
		clock = time.Now
	}
	return &RedisBucketStore{client: client, clock: clock}
}

// Allow trims the window, counts it, and records the request when under the
// limit. Trim and count run in one MULTI; the insert is a second round trip,
// so concurrent callers may overshoot by the number of racing replicas.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (models.Result, error) {
	now := s.clock()
	rkey := bucketKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	var (
		count  *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, rkey, "-inf", cutoff)
		count = p.ZCard(ctx, rkey)
		oldest = p.ZRangeWithScores(ctx, rkey, 0, 0)
		return nil
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("read rate limit window: %w", err)
	}

	n := int(count.Val())
	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMicro(int64(zs[0].Score)).Add(window)
	}
	if n >= limit {
		return models.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
		p.PExpire(ctx, rkey, window)
		return nil
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("record rate limit hit: %w", err)
	}
	return models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - n - 1,
		ResetAt:   resetAt,
	}, nil
}

// Reset forgets key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, bucketKeyPrefix+key).Err()
}
