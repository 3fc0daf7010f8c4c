package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/crm-service/internal/domain"
)

var (
	// ErrTokenExpired reports a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid reports any other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims describes JWT payload.
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Type   TokenType   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is the result of login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	RefreshID        string
}

// TokenManager handles issuing and validating JWT tokens. Access and refresh
// tokens are signed with distinct secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// RefreshTTL exposes the refresh lifetime for revocation bookkeeping.
func (tm *TokenManager) RefreshTTL() time.Duration {
	return tm.refreshTTL
}

// GeneratePair signs a fresh access and refresh token for user.
func (tm *TokenManager) GeneratePair(user domain.User) (TokenPair, error) {
	access, accessExp, _, err := tm.sign(user, TokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, refreshID, err := tm.sign(user, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		RefreshID:        refreshID,
	}, nil
}

// ParseAccess validates an access token.
func (tm *TokenManager) ParseAccess(tokenStr string) (*Claims, error) {
	return tm.parse(tokenStr, tm.accessSecret, TokenTypeAccess)
}

// ParseRefresh validates a refresh token.
func (tm *TokenManager) ParseRefresh(tokenStr string) (*Claims, error) {
	return tm.parse(tokenStr, tm.refreshSecret, TokenTypeRefresh)
}

func (tm *TokenManager) sign(user domain.User, typ TokenType) (string, time.Time, string, error) {
	secret, ttl := tm.accessSecret, tm.accessTTL
	if typ == TokenTypeRefresh {
		secret, ttl = tm.refreshSecret, tm.refreshTTL
	}

	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	jti := uuid.NewString()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, "", err
	}
	return tokenString, expiresAt, jti, nil
}

func (tm *TokenManager) parse(tokenStr string, secret []byte, typ TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Type != typ || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
