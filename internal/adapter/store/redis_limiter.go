package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopchat/internal/domain/entity"
)

// RedisLimiter enforces a sliding-window request budget per caller,
// backed by a Redis sorted set scored by request timestamp.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	budget int
	nowFn  func() time.Time
}

func NewRedisLimiter(client *redis.Client, window time.Duration, budget int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		window: window,
		budget: budget,
		nowFn:  time.Now,
	}
}

func (r *RedisLimiter) Admit(ctx context.Context, identity string) (entity.AdmitResult, error) {
	key := "ratelimit:" + identity
	now := r.nowFn()
	cutoff := now.Add(-r.window)

	// Check and record in one transaction: if the count were read in a
	// separate round-trip, concurrent requests could all see the same
	// pre-insert count and overrun the budget. The member must be
	// unique so concurrent requests in the same millisecond all count.
	member := uuid.NewString()
	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixMilli()))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: member,
	})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return entity.AdmitResult{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	if count > r.budget {
		// Best-effort rollback so denied requests don't hold window
		// capacity. If it fails the entry ages out with the window.
		r.client.ZRem(ctx, key, member)
		return entity.AdmitResult{Allowed: false, Limit: r.budget, Remaining: 0}, nil
	}

	return entity.AdmitResult{
		Allowed:   true,
		Limit:     r.budget,
		Remaining: r.budget - count,
	}, nil
}
