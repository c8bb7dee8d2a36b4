package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Environment string

	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Secrets   SecretsConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Business  BusinessConfig
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string
	Port            int
	MetricsPort     int
	ShutdownTimeout time.Duration
}

// StorageConfig selects the repository backend: "postgres" or "memory"
type StorageConfig struct {
	Backend string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string // takes precedence over the discrete fields
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32

	MonitorInterval time.Duration
}

// RedisConfig enables the plan-list cache when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// GatewayConfig holds payment gateway credentials. An empty KeySecret is
// resolved through the secret manager at SecretPath.
type GatewayConfig struct {
	BaseURL     string
	KeyID       string
	KeySecret   string
	SecretPath  string
	MaxAttempts int
}

// SecretsConfig selects the secret manager: "local", "aws" or "vault"
type SecretsConfig struct {
	Backend   string
	LocalPath string

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	VaultAddress    string
	VaultAuthMethod string
	VaultToken      string
	VaultRoleID     string
	VaultSecretID   string
	VaultMountPath  string
	VaultNamespace  string

	CacheTTL time.Duration
}

// AuthConfig holds session token verification settings
type AuthConfig struct {
	PublicKeyPath string
	Issuer        string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// BusinessConfig holds pricing knobs
type BusinessConfig struct {
	CommissionRate decimal.Decimal
	Currency       string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	commission, err := decimal.NewFromString(getEnv("COMMISSION_RATE", "0.02"))
	if err != nil {
		return nil, fmt.Errorf("COMMISSION_RATE: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "postgres"),
		},
		Database: DatabaseFromEnv(),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("PLAN_CACHE_TTL", 10*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL:     getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:       getEnv("GATEWAY_KEY_ID", ""),
			KeySecret:   getEnv("GATEWAY_KEY_SECRET", ""),
			SecretPath:  getEnv("GATEWAY_SECRET_PATH", "chit-service/gateway/key-secret"),
			MaxAttempts: getEnvAsInt("GATEWAY_MAX_ATTEMPTS", 3),
		},
		Secrets: SecretsConfig{
			Backend:         getEnv("SECRET_MANAGER", "local"),
			LocalPath:       getEnv("LOCAL_SECRETS_PATH", "./secrets"),
			AWSRegion:       getEnv("AWS_REGION", "ap-south-1"),
			AWSProfile:      getEnv("AWS_PROFILE", ""),
			AWSEndpoint:     getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:    getEnv("VAULT_ADDR", "http://127.0.0.1:8200"),
			VaultAuthMethod: getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:      getEnv("VAULT_TOKEN", ""),
			VaultRoleID:     getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID:   getEnv("VAULT_SECRET_ID", ""),
			VaultMountPath:  getEnv("VAULT_MOUNT_PATH", "secret"),
			VaultNamespace:  getEnv("VAULT_NAMESPACE", ""),
			CacheTTL:        getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
		},
		Auth: AuthConfig{
			PublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./keys/jwt_public.pem"),
			Issuer:        getEnv("JWT_ISSUER", "chit-service"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Business: BusinessConfig{
			CommissionRate: commission,
			Currency:       getEnv("CURRENCY", "INR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseFromEnv reads the PostgreSQL settings alone, for tools that
// need no other configuration
func DatabaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("DATABASE_URL", ""),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "chit_service"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MonitorInterval: getEnvAsDuration("DB_MONITOR_INTERVAL", 30*time.Second),
	}
}

// Validate checks required fields and enumerations
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Database.URL == "" && c.Database.Password == "" {
			return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", c.Storage.Backend)
	}

	switch c.Secrets.Backend {
	case "local", "aws", "vault":
	default:
		return fmt.Errorf("SECRET_MANAGER must be local, aws or vault, got %q", c.Secrets.Backend)
	}

	if c.Gateway.KeyID == "" {
		return fmt.Errorf("GATEWAY_KEY_ID is required")
	}
	if _, err := url.ParseRequestURI(c.Gateway.BaseURL); err != nil {
		return fmt.Errorf("GATEWAY_BASE_URL: %w", err)
	}

	if c.Business.CommissionRate.IsNegative() || c.Business.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("COMMISSION_RATE must be in [0, 1), got %s", c.Business.CommissionRate)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ConnectionString returns the PostgreSQL connection URL
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
