package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	op := env.staff(t, domain.RoleOperator, "op@example.com")

	session, err := env.auth.Login(ctx, "  OP@example.com ", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, op.UserID, session.User.ID)
	assert.NotEmpty(t, session.Tokens.AccessToken)
	assert.Nil(t, session.ClientID)

	_, err = env.auth.Login(ctx, "op@example.com", "wrong")
	domainErr := requireStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid email or password", domainErr.Message)

	_, err = env.auth.Login(ctx, "nobody@example.com", "Secret123")
	domainErr = requireStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid email or password", domainErr.Message)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	op := env.staff(t, domain.RoleOperator, "op@example.com")

	_, err := env.users.ToggleStatus(ctx, admin, op.UserID)
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, "op@example.com", "Secret123")
	domainErr := requireStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Account is deactivated. Please contact support.", domainErr.Message)
}

func TestLoginLinksPortalClient(t *testing.T) {
	env := newTestEnv(t)
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	client := env.client(t, admin, "client@example.com")
	_, err := env.clients.CreatePortalAccount(context.Background(), admin, client.ID, "Portal123")
	require.NoError(t, err)

	session, err := env.auth.Login(context.Background(), "client@example.com", "Portal123")
	require.NoError(t, err)
	require.NotNil(t, session.ClientID)
	assert.Equal(t, client.ID, *session.ClientID)
}

func TestRefreshTokenCannotBeReplayed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	env := newTestEnvWithTokens(t, repository.NewRefreshTokenRepository(rdb))
	ctx := context.Background()
	op := env.staff(t, domain.RoleOperator, "op@example.com")

	session, err := env.auth.Login(ctx, "op@example.com", "Secret123")
	require.NoError(t, err)

	rotated, err := env.auth.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.Tokens.RefreshID, rotated.RefreshID)

	_, err = env.auth.Refresh(ctx, session.Tokens.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)

	require.NoError(t, env.auth.Logout(ctx, op, rotated.RefreshToken))
	_, err = env.auth.Refresh(ctx, rotated.RefreshToken)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestRefreshWithoutTokenStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.staff(t, domain.RoleOperator, "op@example.com")

	session, err := env.auth.Login(ctx, "op@example.com", "Secret123")
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, session.Tokens.RefreshToken)
	require.NoError(t, err)
	_, err = env.auth.Refresh(ctx, session.Tokens.AccessToken)
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	op := env.staff(t, domain.RoleOperator, "op@example.com")

	err := env.auth.ChangePassword(ctx, op, "Secret123", "weak")
	requireStatus(t, err, http.StatusBadRequest)

	err = env.auth.ChangePassword(ctx, op, "Wrong123", "Better456")
	domainErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Current password is incorrect", domainErr.Message)

	require.NoError(t, env.auth.ChangePassword(ctx, op, "Secret123", "Better456"))
	_, err = env.auth.Login(ctx, "op@example.com", "Better456")
	assert.NoError(t, err)
}
