package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist tracks revoked token IDs until their natural expiry.
// The sqlite store implements this for single-node deployments; Redis is
// used when one is configured so revocations are shared across replicas.
type Blacklist interface {
	RevokeToken(ctx context.Context, jti string, until time.Time) error
	TokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist stores revoked token IDs in Redis with a TTL matching the
// token's remaining lifetime.
type RedisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist connects to Redis and verifies the connection.
func NewRedisBlacklist(ctx context.Context, addr, password string) (*RedisBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBlacklist{client: client}, nil
}

func blacklistKey(jti string) string {
	return "revoked:" + jti
}

// RevokeToken marks the token ID revoked until the given time.
func (b *RedisBlacklist) RevokeToken(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// Token already expired; nothing to track.
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// TokenRevoked reports whether the token ID is on the blacklist.
func (b *RedisBlacklist) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
