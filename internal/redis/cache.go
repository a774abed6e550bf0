package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ScheduleCache is the redis-backed cache in front of read-heavy schedule
// queries. Every redis failure degrades to recomputing from the store: the
// cache can only ever cost a round trip, never a correct answer.
type ScheduleCache struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewScheduleCache(client *redis.Client, log zerolog.Logger) *ScheduleCache {
	return &ScheduleCache{client: client, log: log}
}

// GetOrCompute returns the cached value if present and unexpired, otherwise
// runs compute, stores the result with the given TTL and returns it. The
// store happens only after compute succeeds, so a failed read never leaves
// an entry behind.
func (c *ScheduleCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return data, nil
	}
	if err != redis.Nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed, computing directly")
	}

	data, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	if setErr := c.client.Set(ctx, key, data, ttl).Err(); setErr != nil {
		c.log.Warn().Err(setErr).Str("key", key).Msg("cache write failed")
	}
	return data, nil
}

func (c *ScheduleCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// InvalidatePrefix deletes every key under the prefix via SCAN, so it stays
// incremental on large keyspaces.
func (c *ScheduleCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
