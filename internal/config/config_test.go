package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3001", cfg.App.Addr())
	assert.True(t, cfg.App.IsDevelopment())
	assert.Equal(t, 15*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, "local", cfg.Upload.Driver)
}

func TestLoadRequiresSecretsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")
	_, err = Load()
	assert.EqualError(t, err, "JWT_SECRET and JWT_REFRESH_SECRET must differ")

	t.Setenv("JWT_REFRESH_SECRET", "other")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.App.IsDevelopment())
}

func TestLoadValidatesS3AndNumbers(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err := Load()
	assert.EqualError(t, err, "S3_BUCKET is required when STORAGE_DRIVER=s3")

	t.Setenv("STORAGE_DRIVER", "local")
	t.Setenv("REDIS_DB", "zero")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("REDIS_DB", "2")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "nope")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 15*time.Second, cfg.App.RequestTimeout(), "unparseable ints fall back to defaults")
}
