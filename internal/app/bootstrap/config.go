package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the identity service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID   string
	Environment string

	HTTPPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	JWTSecret  string
	BcryptCost int

	AccessTokenTTL      time.Duration
	RefreshTokenTTLDays int
	ChallengeTTL        time.Duration
	LockoutDuration     time.Duration
	FailedThreshold     int

	FrontendHost string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	QueueConnectAttempts     int
	QueueConnectRetryDelay   time.Duration
	QueueMaxDeliveryAttempts int
	QueueRetryDelay          time.Duration

	MaxDBConns int32
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		FrontendHost string   `yaml:"frontend_host"`
	} `yaml:"dependencies"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Delivery struct {
		ConnectAttempts     int `yaml:"connect_attempts"`
		ConnectRetrySeconds int `yaml:"connect_retry_seconds"`
		MaxDeliveryAttempts int `yaml:"max_delivery_attempts"`
		RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
	} `yaml:"delivery"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                "identity-service",
		Environment:              "development",
		HTTPPort:                 8080,
		BcryptCost:               12,
		AccessTokenTTL:           time.Hour,
		RefreshTokenTTLDays:      7,
		ChallengeTTL:             15 * time.Minute,
		LockoutDuration:          30 * time.Minute,
		FailedThreshold:          5,
		QueueConnectAttempts:     5,
		QueueConnectRetryDelay:   3 * time.Second,
		QueueMaxDeliveryAttempts: 5,
		QueueRetryDelay:          10 * time.Second,
		MaxDBConns:               20,
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
		if f.Service.Environment != "" {
			cfg.Environment = f.Service.Environment
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
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.FrontendHost != "" {
			cfg.FrontendHost = f.Dependencies.FrontendHost
		}
		if f.SMTP.Host != "" {
			cfg.SMTPHost = f.SMTP.Host
		}
		if f.SMTP.Port != "" {
			cfg.SMTPPort = f.SMTP.Port
		}
		if f.SMTP.Username != "" {
			cfg.SMTPUsername = f.SMTP.Username
		}
		if f.SMTP.Password != "" {
			cfg.SMTPPassword = f.SMTP.Password
		}
		if f.SMTP.From != "" {
			cfg.SMTPFrom = f.SMTP.From
		}
		if f.Delivery.ConnectAttempts > 0 {
			cfg.QueueConnectAttempts = f.Delivery.ConnectAttempts
		}
		if f.Delivery.ConnectRetrySeconds > 0 {
			cfg.QueueConnectRetryDelay = time.Duration(f.Delivery.ConnectRetrySeconds) * time.Second
		}
		if f.Delivery.MaxDeliveryAttempts > 0 {
			cfg.QueueMaxDeliveryAttempts = f.Delivery.MaxDeliveryAttempts
		}
		if f.Delivery.RetryDelaySeconds > 0 {
			cfg.QueueRetryDelay = time.Duration(f.Delivery.RetryDelaySeconds) * time.Second
		}
	}

	cfg.Environment = envOrDefault("APP_ENV", cfg.Environment)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.FrontendHost = envOrDefault("FRONTEND_HOST", cfg.FrontendHost)
	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envOrDefault("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = envOrDefault("SMTP_FROM", cfg.SMTPFrom)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.RefreshTokenTTLDays = envInt("REFRESH_TOKEN_EXPIRY_DAYS", cfg.RefreshTokenTTLDays)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_EXPIRY_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.ChallengeTTL = time.Duration(envInt("CHALLENGE_EXPIRY_MINUTES", int(cfg.ChallengeTTL.Minutes()))) * time.Minute
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.QueueConnectAttempts = envInt("QUEUE_CONNECT_ATTEMPTS", cfg.QueueConnectAttempts)
	cfg.QueueConnectRetryDelay = time.Duration(envInt("QUEUE_CONNECT_RETRY_SECONDS", int(cfg.QueueConnectRetryDelay.Seconds()))) * time.Second
	cfg.QueueMaxDeliveryAttempts = envInt("QUEUE_MAX_DELIVERY_ATTEMPTS", cfg.QueueMaxDeliveryAttempts)
	cfg.QueueRetryDelay = time.Duration(envInt("QUEUE_RETRY_DELAY_SECONDS", int(cfg.QueueRetryDelay.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("missing KAFKA_BROKERS")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
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

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
