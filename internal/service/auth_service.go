package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

const weakPasswordMessage = "Password must be at least 8 characters and contain at least one uppercase letter, one lowercase letter, and one number"

// AuthService coordinates login, token rotation and password changes.
type AuthService struct {
	users         repository.UserRepository
	clients       repository.ClientRepository
	refreshTokens repository.RefreshTokenRepository
	tokenMgr      *auth.TokenManager
	bcryptCost    int
	metrics       *observability.Metrics
	logger        *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates repo requirements for auth service.
// RefreshTokenRepo may be nil, in which case refresh tokens are not tracked.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	ClientRepo       repository.ClientRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// Session is the result of a successful login.
type Session struct {
	User     domain.User
	ClientID *string
	Tokens   auth.TokenPair
}

// Profile is the current caller as returned by /auth/me.
type Profile struct {
	User     domain.User
	ClientID *string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:         deps.UserRepo,
		clients:       deps.ClientRepo,
		refreshTokens: deps.RefreshTokenRepo,
		tokenMgr:      auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL()),
		bcryptCost:    cfg.BcryptCost,
		metrics:       deps.Metrics,
		logger:        nopLogger(deps.Logger),
	}
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		// Burn a comparison so unknown emails cost the same as wrong passwords.
		_ = auth.ComparePassword(s.placeholderHash(), password)
		s.metrics.RecordLogin("failure")
		return nil, apperrors.NewUnauthorized("Invalid email or password")
	}
	if !user.IsActive {
		s.metrics.RecordLogin("failure")
		return nil, apperrors.NewUnauthorized("Account is deactivated. Please contact support.")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.metrics.RecordLogin("failure")
		return nil, apperrors.NewUnauthorized("Invalid email or password")
	}

	tokens, err := s.tokenMgr.GeneratePair(*user)
	if err != nil {
		return nil, err
	}
	clientID, err := s.linkedClientID(ctx, *user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin("success")
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &Session{User: *user, ClientID: clientID, Tokens: tokens}, nil
}

// Refresh verifies a refresh token and issues a new pair. Each refresh token
// may be redeemed once when a token store is configured.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokenMgr.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, apperrors.NewUnauthorized("Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return auth.TokenPair{}, apperrors.NewUnauthorized("User not found")
		}
		return auth.TokenPair{}, err
	}
	if !user.IsActive {
		return auth.TokenPair{}, apperrors.NewUnauthorized("Account is deactivated")
	}

	if s.refreshTokens != nil {
		fresh, err := s.refreshTokens.Consume(ctx, claims.ID, remaining(claims.ExpiresAt.Time))
		if err != nil {
			return auth.TokenPair{}, err
		}
		if !fresh {
			s.logger.Warn("refresh token replayed", zap.String("user_id", user.ID), zap.String("jti", claims.ID))
			return auth.TokenPair{}, apperrors.NewUnauthorized("Invalid or expired refresh token")
		}
	}
	return s.tokenMgr.GeneratePair(*user)
}

// Logout revokes the caller's refresh token. Tokens that fail to parse or
// belong to someone else are ignored.
func (s *AuthService) Logout(ctx context.Context, actor domain.Identity, refreshToken string) error {
	if s.refreshTokens == nil || refreshToken == "" {
		return nil
	}
	claims, err := s.tokenMgr.ParseRefresh(refreshToken)
	if err != nil || claims.UserID != actor.UserID {
		return nil
	}
	return s.refreshTokens.Revoke(ctx, claims.ID, remaining(claims.ExpiresAt.Time))
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, actor domain.Identity) (*Profile, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound(err, "User", actor.UserID)
	}
	return &Profile{User: *user, ClientID: actor.ClientID}, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Identity, currentPassword, newPassword string) error {
	if !auth.StrongPassword(newPassword) {
		return apperrors.NewValidationError(weakPasswordMessage, map[string]any{"field": "newPassword"})
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return notFound(err, "User", actor.UserID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewBadRequest("Current password is incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) linkedClientID(ctx context.Context, user domain.User) (*string, error) {
	if user.Role != domain.RoleClient || s.clients == nil {
		return nil, nil
	}
	client, err := s.clients.GetByUserID(ctx, user.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &client.ID, nil
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("placeholder-password", s.bcryptCost)
	})
	return s.dummyHash
}

func remaining(expiresAt time.Time) time.Duration {
	return time.Until(expiresAt)
}
