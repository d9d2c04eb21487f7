package convo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ragforge/ragforge/internal/rflog"
)

// RedisCache backs the recent-turn cache named in SPEC_FULL.md's domain
// stack table, grounded on the same redis usage as internal/config.Cache.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
	log rflog.Logger
}

func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	if addr == "" {
		return nil
	}
	return &RedisCache{rdb: redis.NewClient(&redis.Options{Addr: addr}), ttl: ttl, log: rflog.Default.With("component", "convo_cache")}
}

func recentKey(sessionID string) string { return "ragforge:convo:recent:" + sessionID }

func (c *RedisCache) RecentMessages(ctx context.Context, sessionID string, count int) ([]Message, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, recentKey(sessionID)).Bytes()
	if err != nil {
		return nil, false
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false
	}
	if count > 0 && len(msgs) > count {
		msgs = msgs[len(msgs)-count:]
	}
	return msgs, true
}

func (c *RedisCache) SetRecentMessages(ctx context.Context, sessionID string, messages []Message) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, recentKey(sessionID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("convo cache set failed", "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, sessionID string) {
	if c == nil {
		return
	}
	c.rdb.Del(ctx, recentKey(sessionID))
}
