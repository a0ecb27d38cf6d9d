package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL string
	RedisURL    string

	ResourceTokenSecret string

	// AdminAPIToken guards the operator endpoints; empty disables them.
	AdminAPIToken string

	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8

	SessionTTL          time.Duration
	IdleTimeout         time.Duration
	ExtendWindow        time.Duration
	ExtendBy            time.Duration
	ResourceTokenMaxAge time.Duration
	SingleSession       bool

	LoginThrottleThreshold int
	LoginThrottleWindow    time.Duration

	MaxDBConns int32
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		ResourceTokenSecret string `yaml:"resource_token_secret"`
		AdminAPIToken       string `yaml:"admin_api_token"`
		SingleSession       *bool  `yaml:"single_session"`
	} `yaml:"auth"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "authcore",
		HTTPPort:               8080,
		Argon2Time:             3,
		Argon2Memory:           64 * 1024,
		Argon2Threads:          4,
		SessionTTL:             24 * time.Hour,
		IdleTimeout:            30 * time.Minute,
		ExtendWindow:           10 * time.Minute,
		ExtendBy:               30 * time.Minute,
		ResourceTokenMaxAge:    24 * time.Hour,
		SingleSession:          true,
		LoginThrottleThreshold: 60,
		LoginThrottleWindow:    time.Minute,
		MaxDBConns:             20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Auth.ResourceTokenSecret != "" {
			cfg.ResourceTokenSecret = f.Auth.ResourceTokenSecret
		}
		if f.Auth.AdminAPIToken != "" {
			cfg.AdminAPIToken = f.Auth.AdminAPIToken
		}
		if f.Auth.SingleSession != nil {
			cfg.SingleSession = *f.Auth.SingleSession
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.ResourceTokenSecret = envOrDefault("RESOURCE_TOKEN_SECRET", cfg.ResourceTokenSecret)
	cfg.AdminAPIToken = envOrDefault("ADMIN_API_TOKEN", cfg.AdminAPIToken)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.SingleSession = envBool("SINGLE_SESSION", cfg.SingleSession)

	cfg.Argon2Time = uint32(envInt("ARGON2_TIME", int(cfg.Argon2Time)))
	cfg.Argon2Memory = uint32(envInt("ARGON2_MEMORY_KIB", int(cfg.Argon2Memory)))
	cfg.Argon2Threads = uint8(envInt("ARGON2_THREADS", int(cfg.Argon2Threads)))

	cfg.SessionTTL = time.Duration(envInt("SESSION_EXPIRY_HOURS", int(cfg.SessionTTL.Hours()))) * time.Hour
	cfg.IdleTimeout = time.Duration(envInt("SESSION_IDLE_MINUTES", int(cfg.IdleTimeout.Minutes()))) * time.Minute
	cfg.ExtendWindow = time.Duration(envInt("SESSION_EXTEND_WINDOW_MINUTES", int(cfg.ExtendWindow.Minutes()))) * time.Minute
	cfg.ExtendBy = time.Duration(envInt("SESSION_EXTEND_BY_MINUTES", int(cfg.ExtendBy.Minutes()))) * time.Minute
	cfg.ResourceTokenMaxAge = time.Duration(envInt("RESOURCE_TOKEN_MAX_AGE_HOURS", int(cfg.ResourceTokenMaxAge.Hours()))) * time.Hour
	cfg.LoginThrottleThreshold = envInt("LOGIN_THROTTLE_THRESHOLD", cfg.LoginThrottleThreshold)
	cfg.LoginThrottleWindow = time.Duration(envInt("LOGIN_THROTTLE_WINDOW_SECONDS", int(cfg.LoginThrottleWindow.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if len(cfg.ResourceTokenSecret) < 32 {
		return Config{}, fmt.Errorf("RESOURCE_TOKEN_SECRET must be at least 32 bytes")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
