package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/mocks"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

type fixture struct {
	app    *fiber.App
	tokens *TokenManager
	store  *mocks.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mocks.NewStore()
	tokens := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	mw := NewAuthMiddleware(tokens, store.UserRepo(), store.ClientRepo())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Message)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		id, _ := IdentityFromContext(c)
		return c.SendString(string(id.Role) + ":" + id.LinkedClientID())
	}
	app.Get("/me", mw.Handle, RequireAuthenticated(), whoami)
	app.Get("/staff", mw.Handle, RequireStaff(), whoami)
	app.Get("/manager", mw.Handle, RequireManager(), whoami)
	app.Get("/admin", mw.Handle, RequireAdmin(), whoami)
	app.Get("/portal", mw.Handle, RequireClientPortal(), whoami)
	return &fixture{app: app, tokens: tokens, store: store}
}

func (f *fixture) user(t *testing.T, role domain.Role, active bool) domain.User {
	t.Helper()
	user := &domain.User{
		Email:     string(role) + "@example.com",
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
		IsActive:  active,
	}
	require.NoError(t, f.store.UserRepo().Create(context.Background(), user))
	return *user
}

func (f *fixture) call(t *testing.T, path, bearer string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (f *fixture) token(t *testing.T, user domain.User) string {
	t.Helper()
	pair, err := f.tokens.GeneratePair(user)
	require.NoError(t, err)
	return pair.AccessToken
}

func TestAuthMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access token required", body)

	status, body = f.call(t, "/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", body)
}

func TestAuthMiddlewareRejectsDeactivatedUser(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, domain.RoleOperator, false)

	status, body := f.call(t, "/me", f.token(t, user))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "User not found or inactive", body)
}

func TestAuthMiddlewareResolvesLinkedClient(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, domain.RoleClient, true)
	client := &domain.Client{FirstName: "Ada", LastName: "Client", Email: "ada@example.com", IsActive: true, UserID: &user.ID}
	require.NoError(t, f.store.ClientRepo().Create(context.Background(), client))

	status, body := f.call(t, "/portal", f.token(t, user))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CLIENT:"+client.ID, body)
}

func TestRoleGates(t *testing.T) {
	f := newFixture(t)
	tokens := map[domain.Role]string{}
	for _, role := range domain.Roles() {
		tokens[role] = f.token(t, f.user(t, role, true))
	}

	cases := []struct {
		path    string
		allowed []domain.Role
	}{
		{"/me", []domain.Role{domain.RoleAdmin, domain.RoleSupervisor, domain.RoleOperator, domain.RoleClient}},
		{"/staff", []domain.Role{domain.RoleAdmin, domain.RoleSupervisor, domain.RoleOperator}},
		{"/manager", []domain.Role{domain.RoleAdmin, domain.RoleSupervisor}},
		{"/admin", []domain.Role{domain.RoleAdmin}},
		{"/portal", nil},
	}
	for _, tc := range cases {
		for _, role := range domain.Roles() {
			want := http.StatusForbidden
			for _, allowed := range tc.allowed {
				if allowed == role {
					want = http.StatusOK
				}
			}
			status, _ := f.call(t, tc.path, tokens[role])
			assert.Equal(t, want, status, "%s as %s", tc.path, role)
		}
	}
}
