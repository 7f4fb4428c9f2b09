package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/collage_test")
	t.Setenv("CURSOR_SECRET", "cursor-secret")
	t.Setenv("AUTH_HS256_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 20, cfg.FeedDefaultLimit)
	assert.Equal(t, 50, cfg.FeedMaxLimit)
	assert.Equal(t, 30*time.Second, cfg.ScopeCacheTTL)
	assert.Equal(t, 4, cfg.RecorderWorkers)
	assert.Equal(t, 3, cfg.RecorderRetries)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APPVIEW_PORT", "9000")
	t.Setenv("FEED_MAX_LIMIT", "100")
	t.Setenv("SCOPE_CACHE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("VIEW_RECORDER_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 100, cfg.FeedMaxLimit)
	assert.Equal(t, 2*time.Minute, cfg.ScopeCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 4, cfg.RecorderWorkers)
}

func TestLoad_ReportsAllMissing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CURSOR_SECRET", "")
	t.Setenv("AUTH_HS256_SECRET", "")
	t.Setenv("AUTH_JWKS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "CURSOR_SECRET")
	assert.Contains(t, err.Error(), "AUTH_HS256_SECRET or AUTH_JWKS")
}

func TestLoad_JWKSSatisfiesAuth(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_HS256_SECRET", "")
	t.Setenv("AUTH_JWKS", "/etc/collage/jwks.json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/etc/collage/jwks.json", cfg.JWKSPath)
}

func TestLoad_InvalidLimits(t *testing.T) {
	setRequired(t)
	t.Setenv("FEED_DEFAULT_LIMIT", "60")

	_, err := Load()
	assert.Error(t, err)
}
