package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv blanks every variable Load reads so the host environment cannot leak in.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CONFIG_FILE", "PORT", "SESSION_KEY", "LOG_DIR", "DATABASE_URL", "POSTGRES_URL", "REDIS_URL",
		"ALLOWED_ORIGINS", "AUTH_PEPPER", "SESSION_TTL", "RATE_LIMIT_MAX_ATTEMPTS", "RATE_LIMIT_WINDOW",
		"TRUSTED_PROXIES", "METRICS_ADDR", "AUTO_MIGRATE", "BOOTSTRAP_CREDENTIAL", "INITIAL_PASSWORD_PATH",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DefaultPepper, cfg.AuthPepper)
	assert.False(t, PepperConfigured(cfg.AuthPepper))
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 8, cfg.RateLimitMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("AUTH_PEPPER", "pepper-from-env")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("RATE_LIMIT_MAX_ATTEMPTS", "3")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("POSTGRES_URL", "postgres://fallback")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "pepper-from-env", cfg.AuthPepper)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.RateLimitMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow, "invalid duration keeps the default")
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.TrustedProxies)
	assert.Equal(t, "postgres://fallback", cfg.DatabaseURL)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "8080"
auth_pepper: pepper-from-file
allowed_origins:
  - https://file.example
session_ttl: 2h
rate_limit_window: 5m
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port, "env wins over file")
	assert.Equal(t, "pepper-from-file", cfg.AuthPepper)
	assert.Equal(t, []string{"https://file.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 8, cfg.RateLimitMaxAttempts)
}

func TestLoadMissingFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
