package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionCache stores checkout sessions in Redis keyed by order number.
type RedisSessionCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionCache returns a cache or nil when rdb is nil so that the
// client degrades to uncached operation.
func NewRedisSessionCache(rdb *redis.Client, prefix string, ttl time.Duration) SessionCache {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "paysession"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisSessionCache) key(orderNumber string) string { return c.prefix + ":" + orderNumber }

// Get returns the cached session, or nil and no error on a miss.
func (c *RedisSessionCache) Get(ctx context.Context, orderNumber string) (*Session, error) {
	bs, err := c.rdb.Get(ctx, c.key(orderNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Set stores the session for the configured TTL.
func (c *RedisSessionCache) Set(ctx context.Context, orderNumber string, s *Session) error {
	bs, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(orderNumber), bs, c.ttl).Err()
}
