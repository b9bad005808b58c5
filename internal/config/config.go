package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Limits sources.
const (
	LimitsSourceRedis  = "redis"
	LimitsSourceFile   = "file"
	LimitsSourceStatic = "static"
)

type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Limits     LimitsConfig
	Reputation ReputationConfig
	Cleanup    CleanupConfig
}

type ServerConfig struct {
	Port                   string
	Env                    string
	LogLevel               string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	TrustedProxies         []string
	CheckRequestsPerMinute int
}

type StoreConfig struct {
	Backend         string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SQLitePath      string
	KeyPrefix       string
	IdentityHashKey string
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type AuthConfig struct {
	AdminJWTSecret   string
	AdminTokenExpiry time.Duration
}

type LimitsConfig struct {
	File         string
	Source       string
	PollInterval time.Duration
}

type ReputationConfig struct {
	URL          string
	EnableCheck  bool
	BlockBelow   int
	SuspectBelow int
	Timeout      time.Duration
}

type CleanupConfig struct {
	Interval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:                   getEnv("PORT", "8080"),
			Env:                    env,
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies:         getEnvAsList("TRUSTED_PROXIES"),
			CheckRequestsPerMinute: getEnvAsInt("CHECK_REQUESTS_PER_MINUTE", 600),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
			RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			RedisDB:         getEnvAsInt("REDIS_DB", 0),
			SQLitePath:      getEnv("SQLITE_PATH", "customs.db"),
			KeyPrefix:       getEnv("KEY_PREFIX", "customs"),
			IdentityHashKey: getEnv("IDENTITY_HASH_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "customs"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Auth: AuthConfig{
			AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
			AdminTokenExpiry: getEnvAsDuration("ADMIN_TOKEN_EXPIRY", 1*time.Hour),
		},
		Limits: LimitsConfig{
			File:         getEnv("LIMITS_FILE", ""),
			Source:       strings.ToLower(getEnv("LIMITS_SOURCE", LimitsSourceRedis)),
			PollInterval: getEnvAsDuration("LIMITS_POLL_INTERVAL", 30*time.Second),
		},
		Reputation: ReputationConfig{
			URL:          getEnv("REPUTATION_URL", ""),
			EnableCheck:  getEnvAsBool("REPUTATION_ENABLE_CHECK", false),
			BlockBelow:   getEnvAsInt("REPUTATION_BLOCK_BELOW", 0),
			SuspectBelow: getEnvAsInt("REPUTATION_SUSPECT_BELOW", 0),
			Timeout:      getEnvAsDuration("REPUTATION_TIMEOUT", 500*time.Millisecond),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsDuration("RECORD_CLEANUP_INTERVAL", 10*time.Minute),
		},
	}

	if err := validateJWTSecret(cfg.Auth.AdminJWTSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validateStore(); err != nil {
		return nil, err
	}

	if err := cfg.validateLimits(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of redis, postgres, sqlite (got %q)", c.Store.Backend)
	}

	if c.Server.Env == "production" && len(c.Store.IdentityHashKey) < 16 {
		return fmt.Errorf("IDENTITY_HASH_KEY must be at least 16 characters in production")
	}
	return nil
}

func (c *Config) validateLimits() error {
	switch c.Limits.Source {
	case LimitsSourceRedis:
		// Limits in Redis need somewhere to live even when records do not.
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when LIMITS_SOURCE=redis")
		}
	case LimitsSourceFile:
		if c.Limits.File == "" {
			return fmt.Errorf("LIMITS_FILE is required when LIMITS_SOURCE=file")
		}
	case LimitsSourceStatic:
	default:
		return fmt.Errorf("LIMITS_SOURCE must be one of redis, file, static (got %q)", c.Limits.Source)
	}

	if c.Limits.PollInterval <= 0 {
		return fmt.Errorf("LIMITS_POLL_INTERVAL must be positive")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for the admin token secret
func validateJWTSecret(secret, env string) error {
	if secret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required")
	}

	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("ADMIN_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("ADMIN_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
