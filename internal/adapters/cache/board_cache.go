// Package cache holds the Redis-backed read cache for the lot board.
// Bidders poll the board aggressively during a live event; the short TTL
// keeps that load off Postgres without letting stale leaders linger.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const boardKey = "auction:board"

// BoardCache caches the rendered lot board response. All operations are
// best-effort: a Redis failure is logged and the caller falls through to
// the database.
type BoardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewBoardCache creates a board cache with the given TTL
func NewBoardCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *BoardCache {
	return &BoardCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached board payload, or false on a miss or error
func (c *BoardCache) Get(ctx context.Context) ([]byte, bool) {
	data, err := c.client.Get(ctx, boardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Board cache read failed", "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set stores the board payload with the configured TTL
func (c *BoardCache) Set(ctx context.Context, data []byte) {
	if err := c.client.Set(ctx, boardKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Board cache write failed", "error", err)
	}
}

// Invalidate drops the cached board after any write that changes it
func (c *BoardCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, boardKey).Err(); err != nil {
		c.logger.Warn("Board cache invalidation failed", "error", err)
	}
}
