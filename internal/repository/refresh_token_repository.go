package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshTokenKeyPrefix = "crm:refresh:"

// RefreshTokenRepository tracks refresh token ids that may no longer be redeemed.
type RefreshTokenRepository interface {
	// Consume marks jti as redeemed. It returns false when the token was already
	// redeemed or revoked.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	// Revoke blocks jti until ttl elapses.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type redisRefreshTokenRepository struct {
	client *redis.Client
}

// NewRefreshTokenRepository stores token state in Redis with the token's remaining lifetime as TTL.
func NewRefreshTokenRepository(client *redis.Client) RefreshTokenRepository {
	return &redisRefreshTokenRepository{client: client}
}

func (r *redisRefreshTokenRepository) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, refreshTokenKeyPrefix+jti, "used", clampTTL(ttl)).Result()
}

func (r *redisRefreshTokenRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return r.client.Set(ctx, refreshTokenKeyPrefix+jti, "revoked", clampTTL(ttl)).Err()
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
