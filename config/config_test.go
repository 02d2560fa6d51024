package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"APP_ENV", "APP_NAME", "APP_VERSION", "APP_HISTORY_LIMIT",
	"GRADEBOOK_TEACHER_SECRET", "GRADEBOOK_TEACHER_SECRET_HASH",
	"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	"REDIS_POOL_SIZE", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT", "REDIS_KEY_PREFIX", "REDIS_HEAL_INTERVAL",
	"DATABASE_ENABLED", "DATABASE_URL", "DB_MAX_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONNECT_TIMEOUT", "DB_MIGRATE",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key this package reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "gradebook", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, 10, cfg.App.HistoryLimit)
	assert.Equal(t, "123456", cfg.Auth.TeacherSecret)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "gradebook:", cfg.Redis.KeyPrefix)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DIAL_TIMEOUT", "750ms")
	t.Setenv("DATABASE_ENABLED", "1")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/gradebook")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Redis.DialTimeout)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://u:p@db/gradebook", cfg.Database.URL)
	assert.Equal(t, "text", cfg.Observability.LogFormat)
}

func TestFromEnv_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_PORT", "not-a-port")
	t.Setenv("REDIS_ENABLED", "maybe")
	t.Setenv("DB_CONNECT_TIMEOUT", "soon")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"database without url", map[string]string{"DATABASE_ENABLED": "true"}, "DATABASE_URL"},
		{"redis bad db", map[string]string{"REDIS_ENABLED": "true", "REDIS_DB": "20"}, "REDIS_DB"},
		{"redis zero heal interval", map[string]string{"REDIS_ENABLED": "true", "REDIS_HEAL_INTERVAL": "0s"}, "REDIS_HEAL_INTERVAL"},
		{"unknown env", map[string]string{"APP_ENV": "staging"}, "APP_ENV"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"default secret in production", map[string]string{"APP_ENV": "production"}, "default teacher secret"},
		{"zero history", map[string]string{"APP_HISTORY_LIMIT": "0"}, "APP_HISTORY_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ProductionWithHash(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("GRADEBOOK_TEACHER_SECRET_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=from-file\nREDIS_PORT=7000\n"), 0o600))

	// godotenv never overrides variables that are already set, so unset the
	// blanks clearEnv installed for the keys the file provides.
	require.NoError(t, os.Unsetenv("APP_NAME"))
	require.NoError(t, os.Unsetenv("REDIS_PORT"))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, 7000, cfg.Redis.Port)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
