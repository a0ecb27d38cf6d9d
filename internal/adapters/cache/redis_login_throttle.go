package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLoginThrottle implements a fixed-window counter per origin key. It
// caps how often an origin can reach the password hasher; per-account lockout
// state stays on the principal row in Postgres.
type RedisLoginThrottle struct {
	client *redis.Client
}

// NewRedisLoginThrottle creates the login rate-limit adapter.
func NewRedisLoginThrottle(client *redis.Client) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client}
}

func (t *RedisLoginThrottle) Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error) {
	redisKey := "auth:throttle:" + key

	count, err := t.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := t.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(threshold), nil
}
