package config

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ragforge/ragforge/internal/rflog"
)

// Cache is the process-wide read-mostly cache for resolved config snapshots
// described in §5 "Shared resources" — rebuilt on startup, invalidated on
// any admin write. Backed by redis when configured; a nil *Cache is a valid
// no-op (every lookup misses, every set is a no-op), so callers need not
// branch on whether caching is enabled.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log rflog.Logger
}

func NewCache(addr string, ttl time.Duration) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
		log: rflog.Default.With("component", "config_cache"),
	}
}

func cacheKey(category Category, userID, collectionID string) string {
	return "ragforge:config:" + string(category) + ":" + userID + ":" + collectionID
}

func (c *Cache) Get(ctx context.Context, category Category, userID, collectionID string) (map[string]Resolved, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(category, userID, collectionID)).Bytes()
	if err != nil {
		return nil, false
	}
	var out map[string]Resolved
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *Cache) Set(ctx context.Context, category Category, userID, collectionID string, resolved map[string]Resolved) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(category, userID, collectionID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("config cache set failed", "error", err)
	}
}

// Invalidate drops every cached entry for a scope key, used after an admin
// write to a runtime-config row.
func (c *Cache) Invalidate(ctx context.Context, category Category, userID, collectionID string) {
	if c == nil {
		return
	}
	c.rdb.Del(ctx, cacheKey(category, userID, collectionID))
}
