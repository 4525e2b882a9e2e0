package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cheertaboi/storefront-checkout-service/internal/payment"
)

const sessionKeyPrefix = "checkout:session:"

type RedisSessionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionCache(rdb *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func (c *RedisSessionCache) Get(ctx context.Context, sessionID string) (*payment.SessionStatus, bool, error) {
	raw, err := c.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}
	var s payment.SessionStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode cached session %s: %w", sessionID, err)
	}
	return &s, true, nil
}

func (c *RedisSessionCache) Set(ctx context.Context, s *payment.SessionStatus) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := c.rdb.Set(ctx, sessionKeyPrefix+s.ID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", s.ID, err)
	}
	return nil
}
