package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationCache is a fast lookaside for revoked token ids. The
// database stays authoritative.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "revoked:"

// RedisRevocationCache stores revoked:<jti> keys that expire together
// with the token.
type RedisRevocationCache struct {
	client redis.UniversalClient
}

func NewRedisRevocationCache(client redis.UniversalClient) *RedisRevocationCache {
	return &RedisRevocationCache{client: client}
}

func (c *RedisRevocationCache) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error {
	return c.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (c *RedisRevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
