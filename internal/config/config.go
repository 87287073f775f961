package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrConfiguration = errors.New("invalid configuration")

const (
	ProfileSourceHTTP   = "http"
	ProfileSourceSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	HTTPPort              int
	GRPCPort              int
	GRPCReflectionEnabled bool

	ProfileSource       string
	ProfileAPIBaseURL   string
	ProfileFetchTimeout time.Duration
	DBDriver            string
	DBPath              string

	ProfileCacheEnabled bool
	RedisAddr           string
	ProfileCacheTTL     time.Duration

	MetabaseSiteURL   string
	MetabaseSecretKey string
	EmbedDashboardID  int64
	EmbedTokenTTL     time.Duration
	EmbedDriverParam  string

	secretFileErr error
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	secret, secretFileErr := getEnvSecret("METABASE_SECRET_KEY")
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		HTTPPort:              getEnvInt("HTTP_PORT", 8080),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getEnvBool("GRPC_REFLECTION_ENABLED", false),

		ProfileSource:       strings.ToLower(getEnv("PROFILE_SOURCE", ProfileSourceHTTP)),
		ProfileAPIBaseURL:   getEnv("PROFILE_API_BASE_URL", "http://localhost:8000"),
		ProfileFetchTimeout: getEnvDuration("PROFILE_FETCH_TIMEOUT", 5*time.Second),
		DBDriver:            getEnv("DB_DRIVER", "sqlite3"),
		DBPath:              getEnv("DB_PATH", "./data/drivers.db"),

		ProfileCacheEnabled: getEnvBool("PROFILE_CACHE_ENABLED", false),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		ProfileCacheTTL:     getEnvDuration("PROFILE_CACHE_TTL", 30*time.Second),

		MetabaseSiteURL:   getEnv("METABASE_SITE_URL", "http://localhost:3000"),
		MetabaseSecretKey: secret,
		EmbedDashboardID:  int64(getEnvInt("EMBED_DASHBOARD_ID", 4)),
		EmbedTokenTTL:     getEnvDuration("EMBED_TOKEN_TTL", 10*time.Minute),
		EmbedDriverParam:  getEnv("EMBED_DRIVER_PARAM", ""),

		secretFileErr: secretFileErr,
	}
}

// Validate reports every problem at once so a bad deployment fails on the first start.
func (c *Config) Validate() error {
	var problems []string

	switch {
	case c.secretFileErr != nil:
		problems = append(problems, fmt.Sprintf("METABASE_SECRET_KEY_FILE: %v", c.secretFileErr))
	case c.MetabaseSecretKey == "":
		problems = append(problems, "METABASE_SECRET_KEY is required")
	}
	if !validBaseURL(c.MetabaseSiteURL) {
		problems = append(problems, "METABASE_SITE_URL must be an absolute http(s) url")
	}
	if c.EmbedDashboardID <= 0 {
		problems = append(problems, "EMBED_DASHBOARD_ID must be positive")
	}
	if c.EmbedTokenTTL < time.Second {
		problems = append(problems, "EMBED_TOKEN_TTL must be at least 1s")
	}
	if c.ProfileFetchTimeout <= 0 {
		problems = append(problems, "PROFILE_FETCH_TIMEOUT must be positive")
	}
	if !validPort(c.HTTPPort) {
		problems = append(problems, fmt.Sprintf("HTTP_PORT %d out of range", c.HTTPPort))
	}
	if !validPort(c.GRPCPort) {
		problems = append(problems, fmt.Sprintf("GRPC_PORT %d out of range", c.GRPCPort))
	}

	switch c.ProfileSource {
	case ProfileSourceHTTP:
		if !validBaseURL(c.ProfileAPIBaseURL) {
			problems = append(problems, "PROFILE_API_BASE_URL must be an absolute http(s) url")
		}
	case ProfileSourceSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH is required for the sqlite profile source")
		}
	default:
		problems = append(problems, fmt.Sprintf("PROFILE_SOURCE %q is not one of http, sqlite", c.ProfileSource))
	}

	if c.ProfileCacheEnabled {
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required when PROFILE_CACHE_ENABLED")
		}
		if c.ProfileCacheTTL <= 0 {
			problems = append(problems, "PROFILE_CACHE_TTL must be positive")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// LogFields describes the configuration for startup logs. The secret is
// reported only as present or absent.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("app_env", c.AppEnv),
		zap.Int("http_port", c.HTTPPort),
		zap.Int("grpc_port", c.GRPCPort),
		zap.String("profile_source", c.ProfileSource),
		zap.Duration("profile_fetch_timeout", c.ProfileFetchTimeout),
		zap.Bool("profile_cache_enabled", c.ProfileCacheEnabled),
		zap.String("metabase_site_url", c.MetabaseSiteURL),
		zap.Bool("metabase_secret_set", c.MetabaseSecretKey != ""),
		zap.Int64("embed_dashboard_id", c.EmbedDashboardID),
		zap.Duration("embed_token_ttl", c.EmbedTokenTTL),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getEnvSecret prefers <key>_FILE so the secret can come from a mounted file.
// An unreadable or empty file is an error, never a fallback to <key>.
func getEnvSecret(key string) (string, error) {
	if file := os.Getenv(key + "_FILE"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read secret file: %w", err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", file)
		}
		return secret, nil
	}
	return strings.TrimSpace(os.Getenv(key)), nil
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}
