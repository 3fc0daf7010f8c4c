package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRefreshTokenConsumeOnce(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	ok, err := repo.Consume(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Consume(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "a refresh token may only be redeemed once")

	ok, err = repo.Consume(ctx, "jti-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshTokenRevokeBlocksConsume(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Hour))

	ok, err := repo.Consume(ctx, "jti-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshTokenEntriesExpire(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRefreshTokenRepository(client)
	ctx := context.Background()

	ok, err := repo.Consume(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(refreshTokenKeyPrefix+"jti-1"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(refreshTokenKeyPrefix+"jti-1"))
}
