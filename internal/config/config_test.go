package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("METABASE_SECRET_KEY", "")
	t.Setenv("METABASE_SECRET_KEY_FILE", "")
	t.Setenv("PROFILE_SOURCE", "")

	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.False(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, ProfileSourceHTTP, cfg.ProfileSource)
	assert.Equal(t, 5*time.Second, cfg.ProfileFetchTimeout)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.False(t, cfg.ProfileCacheEnabled)
	assert.Equal(t, 30*time.Second, cfg.ProfileCacheTTL)
	assert.Equal(t, "http://localhost:3000", cfg.MetabaseSiteURL)
	assert.Equal(t, int64(4), cfg.EmbedDashboardID)
	assert.Equal(t, 10*time.Minute, cfg.EmbedTokenTTL)
	assert.Empty(t, cfg.EmbedDriverParam)
	assert.Empty(t, cfg.MetabaseSecretKey)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("GRPC_PORT", "not-a-port")
	t.Setenv("GRPC_REFLECTION_ENABLED", "true")
	t.Setenv("PROFILE_SOURCE", "SQLite")
	t.Setenv("PROFILE_FETCH_TIMEOUT", "")
	t.Setenv("PROFILE_FETCH_TIMEOUT_SECONDS", "2")
	t.Setenv("EMBED_TOKEN_TTL", "90s")
	t.Setenv("EMBED_DASHBOARD_ID", "12")
	t.Setenv("EMBED_DRIVER_PARAM", "driver_id")
	t.Setenv("METABASE_SECRET_KEY", "  "+testSecret+"\n")
	t.Setenv("METABASE_SECRET_KEY_FILE", "")

	cfg := LoadFromEnv()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort, "unparsable values fall back")
	assert.True(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, ProfileSourceSQLite, cfg.ProfileSource)
	assert.Equal(t, 2*time.Second, cfg.ProfileFetchTimeout)
	assert.Equal(t, 90*time.Second, cfg.EmbedTokenTTL)
	assert.Equal(t, int64(12), cfg.EmbedDashboardID)
	assert.Equal(t, "driver_id", cfg.EmbedDriverParam)
	assert.Equal(t, testSecret, cfg.MetabaseSecretKey)
}

func TestLoadFromEnv_SecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metabase.key")
	require.NoError(t, os.WriteFile(path, []byte(testSecret+"\n"), 0o600))

	t.Setenv("METABASE_SECRET_KEY", "from-env")
	t.Setenv("METABASE_SECRET_KEY_FILE", path)

	cfg := LoadFromEnv()
	assert.Equal(t, testSecret, cfg.MetabaseSecretKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_SecretFileUnreadable(t *testing.T) {
	t.Setenv("METABASE_SECRET_KEY", testSecret)
	t.Setenv("METABASE_SECRET_KEY_FILE", filepath.Join(t.TempDir(), "missing.key"))

	cfg := LoadFromEnv()
	assert.Empty(t, cfg.MetabaseSecretKey, "an unreadable file never falls back to the env value")

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "METABASE_SECRET_KEY_FILE")
	assert.Contains(t, err.Error(), "missing.key")
	assert.NotContains(t, err.Error(), "METABASE_SECRET_KEY is required")
	assert.NotContains(t, err.Error(), testSecret)
}

func TestLoadFromEnv_SecretFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.key")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))
	t.Setenv("METABASE_SECRET_KEY_FILE", path)

	err := LoadFromEnv().Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "is empty")
}

func validConfig() *Config {
	return &Config{
		AppEnv:              "development",
		HTTPPort:            8080,
		GRPCPort:            50051,
		ProfileSource:       ProfileSourceHTTP,
		ProfileAPIBaseURL:   "http://localhost:8000",
		ProfileFetchTimeout: 5 * time.Second,
		DBPath:              "./data/drivers.db",
		RedisAddr:           "localhost:6379",
		ProfileCacheTTL:     30 * time.Second,
		MetabaseSiteURL:     "http://localhost:3000",
		MetabaseSecretKey:   testSecret,
		EmbedDashboardID:    4,
		EmbedTokenTTL:       10 * time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "sqlite source", mutate: func(c *Config) { c.ProfileSource = ProfileSourceSQLite; c.ProfileAPIBaseURL = "" }},
		{name: "missing secret", mutate: func(c *Config) { c.MetabaseSecretKey = "" }, wantErr: "METABASE_SECRET_KEY"},
		{name: "relative site url", mutate: func(c *Config) { c.MetabaseSiteURL = "/metabase" }, wantErr: "METABASE_SITE_URL"},
		{name: "zero dashboard", mutate: func(c *Config) { c.EmbedDashboardID = 0 }, wantErr: "EMBED_DASHBOARD_ID"},
		{name: "sub-second ttl", mutate: func(c *Config) { c.EmbedTokenTTL = 500 * time.Millisecond }, wantErr: "EMBED_TOKEN_TTL"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.ProfileFetchTimeout = 0 }, wantErr: "PROFILE_FETCH_TIMEOUT"},
		{name: "bad port", mutate: func(c *Config) { c.HTTPPort = 70000 }, wantErr: "HTTP_PORT"},
		{name: "unknown source", mutate: func(c *Config) { c.ProfileSource = "postgres" }, wantErr: "PROFILE_SOURCE"},
		{name: "bad api url", mutate: func(c *Config) { c.ProfileAPIBaseURL = "ftp://x" }, wantErr: "PROFILE_API_BASE_URL"},
		{name: "cache without ttl", mutate: func(c *Config) { c.ProfileCacheEnabled = true; c.ProfileCacheTTL = 0 }, wantErr: "PROFILE_CACHE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NotContains(t, err.Error(), testSecret)
		})
	}
}

func TestLogFieldsOmitSecret(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("config", validConfig().LogFields()...)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, true, ctx["metabase_secret_set"])
	for k, v := range ctx {
		assert.NotEqual(t, testSecret, v, k)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{AppEnv: "production"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(&Config{AppEnv: "development"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
