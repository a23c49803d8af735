package dataset

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "scout:dataset:"

// Cache is a Redis read-through cache for encoded clean datasets.
// Exports settle once per day, so a rerun for the same reference date
// can skip the warehouse read entirely. Cache failures are logged and
// degrade to direct loads; they never fail a run.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache creates a dataset cache. A nil *Cache is valid and disables
// caching.
func NewCache(addr string, db int, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "dataset_cache").Logger(),
	}
}

// Get returns the cached blob for a dataset key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	return data, true
}

// Set stores the blob for a dataset key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
