package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

const identityKey = "auth_identity"

// AuthMiddleware validates bearer tokens and resolves the caller's identity.
type AuthMiddleware struct {
	tokens  *TokenManager
	users   repository.UserRepository
	clients repository.ClientRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, clients repository.ClientRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, clients: clients}
}

// Handle enforces authentication. The user is reloaded on every request so
// deactivation and role changes apply before the token expires.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("Access token required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("Access token required")
	}

	claims, err := m.tokens.ParseAccess(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewUnauthorized("Token expired")
		}
		return apperrors.NewUnauthorized("Invalid token")
	}

	identity, err := m.resolve(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

func (m *AuthMiddleware) resolve(ctx context.Context, userID string) (domain.Identity, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, apperrors.NewUnauthorized("User not found or inactive")
		}
		return domain.Identity{}, apperrors.MapError(err)
	}
	if !user.IsActive {
		return domain.Identity{}, apperrors.NewUnauthorized("User not found or inactive")
	}

	identity := domain.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	if user.Role == domain.RoleClient {
		client, err := m.clients.GetByUserID(ctx, user.ID)
		switch {
		case err == nil:
			id := client.ID
			identity.ClientID = &id
		case !errors.Is(err, pgx.ErrNoRows):
			return domain.Identity{}, apperrors.MapError(err)
		}
	}
	return identity, nil
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}
