package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/domain"
)

func testUser() domain.User {
	return domain.User{ID: "u-1", Email: "ops@example.com", Role: domain.RoleOperator}
}

func TestTokenPairRoundTrip(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)

	pair, err := tm.GeneratePair(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)

	claims, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleOperator, claims.Role)

	refresh, err := tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, refresh.ID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	pair, err := tm.GeneratePair(testUser())
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewTokenManager("other", "refresh-secret", time.Minute, time.Hour)
	_, err = other.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestExpiredToken(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	issued := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	pair, err := tm.GeneratePair(testUser())
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = tm.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("Secret123", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "Secret123"))
	assert.Error(t, ComparePassword(hash, "secret123"))

	assert.True(t, StrongPassword("Secret123"))
	assert.False(t, StrongPassword("Sec123"), "too short")
	assert.False(t, StrongPassword("secret123"), "no upper case")
	assert.False(t, StrongPassword("SECRET123"), "no lower case")
	assert.False(t, StrongPassword("SecretPass"), "no digit")

	for i := 0; i < 20; i++ {
		pw, err := GenerateTempPassword()
		require.NoError(t, err)
		assert.Len(t, pw, 12)
		assert.True(t, StrongPassword(pw), pw)
	}
}
