package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionRevocationStore stores terminated-session markers with TTL.
// Markers are keyed by the token digest, so a presented token can be vetoed
// before any DB lookup. The marker lives as long as the session row could
// still be presented.
type RedisSessionRevocationStore struct {
	client *redis.Client
}

// NewRedisSessionRevocationStore creates the terminated-session cache adapter.
func NewRedisSessionRevocationStore(client *redis.Client) *RedisSessionRevocationStore {
	return &RedisSessionRevocationStore{client: client}
}

func (s *RedisSessionRevocationStore) MarkTerminated(ctx context.Context, tokenDigest string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Hour
	}
	return s.client.Set(ctx, "auth:terminated:"+tokenDigest, "1", ttl).Err()
}

func (s *RedisSessionRevocationStore) IsTerminated(ctx context.Context, tokenDigest string) (bool, error) {
	n, err := s.client.Exists(ctx, "auth:terminated:"+tokenDigest).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
