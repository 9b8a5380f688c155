package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/openpath/gatekeeper/pkg/jwtx"
)

// Config is the full runtime configuration, read from the environment
// once at startup.
type Config struct {
	Env  string
	Port int

	LogLevel  string
	LogFormat string

	DatabaseFile string

	// SigningSecret is the HS256 key for access and refresh tokens. There
	// is no default; the service refuses to start without it.
	SigningSecret string
	TokenIssuer   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// AdminToken is the legacy shared admin token. Empty disables the
	// legacy authentication path.
	AdminToken string

	// SharedSecret guards the machine-facing endpoints. Empty leaves them
	// open, which is only sane on a closed network.
	SharedSecret string

	// RedisAddr switches the token blacklist from in-process memory to
	// redis when set.
	RedisAddr     string
	RedisPassword string

	// RuleStoreMode selects the rule file backend: "local" keeps rule
	// files in the service database, "remote" talks to an external
	// versioned file store.
	RuleStoreMode  string
	RuleStoreURL   string
	RuleStoreToken string

	NotifyWebhookURL string

	SweepInterval       time.Duration
	ReportRetention     time.Duration
	ShutdownGracePeriod time.Duration
}

// LoadConfig reads configuration from the environment, applying defaults
// for everything except the signing secret.
func LoadConfig() (Config, error) {
	cfg := Config{
		Env:       getEnvOrDefault("ENV", "development"),
		Port:      getIntOrDefault("PORT", 8080),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "gatekeeper.db"),

		SigningSecret: os.Getenv("SIGNING_SECRET"),
		TokenIssuer:   getEnvOrDefault("TOKEN_ISSUER", "gatekeeper"),
		AccessTTL:     getDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:    getDurationOrDefault("REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),

		AdminToken:   os.Getenv("ADMIN_TOKEN"),
		SharedSecret: os.Getenv("SHARED_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RuleStoreMode:  getEnvOrDefault("RULESTORE_MODE", "local"),
		RuleStoreURL:   os.Getenv("RULESTORE_URL"),
		RuleStoreToken: os.Getenv("RULESTORE_TOKEN"),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),

		SweepInterval:       getDurationOrDefault("SWEEP_INTERVAL", 10*time.Minute),
		ReportRetention:     getDurationOrDefault("REPORT_RETENTION", 30*24*time.Hour),
		ShutdownGracePeriod: getDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.SigningSecret == "" {
		return Config{}, fmt.Errorf("SIGNING_SECRET is required")
	}

	switch cfg.RuleStoreMode {
	case "local":
	case "remote":
		if cfg.RuleStoreURL == "" {
			return Config{}, fmt.Errorf("RULESTORE_URL is required when RULESTORE_MODE=remote")
		}
	default:
		return Config{}, fmt.Errorf("RULESTORE_MODE must be local or remote, got %q", cfg.RuleStoreMode)
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
