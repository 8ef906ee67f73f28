package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  string
	ServerHost  string
	CORSOrigins []string

	// Database configuration
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	SQLitePath    string
	MigrationsDir string

	// Redis configuration. An empty RedisURL and RedisHost disables Redis.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string
	TokenTTL  time.Duration

	// API behaviour
	PageSize          int
	RecipeCreateLimit int
	RecipeModifyLimit int
	RateLimitWindow   time.Duration

	// Image storage
	StorageBackend string
	MediaDir       string
	MediaURL       string
	S3Bucket       string
	S3Region       string

	LogLevel string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageDisk = "disk"
	StorageS3   = "s3"
)

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	switch env {
	case CI:
		if err := loadCIConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load CI configuration: %w", err)
		}
	case Development, Test:
		if err := loadDevConfig(cfg, env); err != nil {
			return nil, fmt.Errorf("failed to load development configuration: %w", err)
		}
	case Production:
		if err := loadProdConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load production configuration: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadCIConfig reads everything from environment variables; secrets come from the CI runner.
func loadCIConfig(cfg *Config) error {
	applyCommon(cfg, func(envName, _ string, def string) string {
		return getEnv(envName, def)
	})
	cfg.DBPassword = os.Getenv("TEST_DB_PASSWORD")
	if cfg.DBPassword == "" {
		cfg.DBPassword = os.Getenv("DB_PASSWORD")
	}
	cfg.JWTSecret = os.Getenv("TEST_JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	return nil
}

// loadDevConfig loads a local .env file, then environment variables, then Docker secrets.
func loadDevConfig(cfg *Config, env Environment) error {
	if env == Development {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read .env: %w", err)
		}
	}

	applyCommon(cfg, func(envName, secretName, def string) string {
		if v := os.Getenv(envName); v != "" {
			return v
		}
		if secretName != "" {
			if v := readSecret(secretName); v != "" {
				return v
			}
		}
		return def
	})
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-jwt-secret"
	}
	return nil
}

// loadProdConfig prefers Docker secrets and only falls back to the environment for non-secret values
func loadProdConfig(cfg *Config) error {
	applyCommon(cfg, func(envName, secretName, def string) string {
		if secretName != "" {
			if v := readSecret(secretName); v != "" {
				return v
			}
		}
		return getEnv(envName, def)
	})
	// Credentials must never come from plain environment variables in production.
	cfg.DBPassword = readSecret("db_password")
	cfg.JWTSecret = readSecret("jwt_secret")
	cfg.RedisPassword = readSecret("redis_password")
	return nil
}

type lookupFunc func(envName, secretName, def string) string

func applyCommon(cfg *Config, get lookupFunc) {
	cfg.ServerPort = get("SERVER_PORT", "server_port", "8080")
	cfg.ServerHost = get("SERVER_HOST", "server_host", "0.0.0.0")
	cfg.CORSOrigins = splitList(get("CORS_ORIGINS", "", "http://localhost:3000,http://localhost:5173"))

	cfg.DBDriver = get("DB_DRIVER", "", DriverSQLite)
	cfg.DBHost = get("DB_HOST", "db_host", "localhost")
	cfg.DBPort = get("DB_PORT", "db_port", "5432")
	cfg.DBUser = get("DB_USER", "db_user", "postgres")
	cfg.DBPassword = get("DB_PASSWORD", "db_password", "")
	cfg.DBName = get("DB_NAME", "db_name", "foodgram")
	cfg.DBSSLMode = get("DB_SSL_MODE", "db_ssl_mode", "disable")
	cfg.SQLitePath = get("SQLITE_PATH", "", "foodgram.db")
	cfg.MigrationsDir = get("MIGRATIONS_DIR", "", "migrations")

	cfg.RedisHost = get("REDIS_HOST", "redis_host", "")
	cfg.RedisPort = get("REDIS_PORT", "redis_port", "6379")
	cfg.RedisPassword = get("REDIS_PASSWORD", "redis_password", "")
	cfg.RedisURL = get("REDIS_URL", "redis_url", "")
	cfg.RedisDB = atoi(get("REDIS_DB", "", "0"), 0)

	cfg.JWTSecret = get("JWT_SECRET", "jwt_secret", "")
	cfg.TokenTTL = duration(get("TOKEN_TTL", "", "24h"), 24*time.Hour)

	cfg.PageSize = atoi(get("PAGE_SIZE", "", "6"), 6)
	cfg.RecipeCreateLimit = atoi(get("RECIPE_CREATE_LIMIT", "", "30"), 30)
	cfg.RecipeModifyLimit = atoi(get("RECIPE_MODIFY_LIMIT", "", "60"), 60)
	cfg.RateLimitWindow = duration(get("RATE_LIMIT_WINDOW", "", "1h"), time.Hour)

	cfg.StorageBackend = get("STORAGE_BACKEND", "", StorageDisk)
	cfg.MediaDir = get("MEDIA_DIR", "", "media")
	cfg.MediaURL = get("MEDIA_URL", "", "/media/")
	cfg.S3Bucket = get("S3_BUCKET_NAME", "s3_bucket_name", "foodgram-recipe-images")
	cfg.S3Region = get("AWS_REGION", "", "us-east-1")

	cfg.LogLevel = get("LOG_LEVEL", "", "info")
}

// RedisEnabled reports whether a Redis endpoint was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// PostgresDSN builds the lib/pq style connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
