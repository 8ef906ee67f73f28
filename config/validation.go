package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirement names a value that must be non-empty in a given environment
type requirement struct {
	Field string
	Value func(*Config) string
}

var (
	jwtSecretReq  = requirement{"jwt_secret", func(c *Config) string { return c.JWTSecret }}
	dbPasswordReq = requirement{"db_password", func(c *Config) string {
		if c.DBDriver == DriverSQLite {
			return "n/a"
		}
		return c.DBPassword
	}}
	dbHostReq = requirement{"DB_HOST", func(c *Config) string {
		if c.DBDriver == DriverSQLite {
			return "n/a"
		}
		return c.DBHost
	}}
	s3BucketReq = requirement{"S3_BUCKET_NAME", func(c *Config) string {
		if c.StorageBackend != StorageS3 {
			return "n/a"
		}
		return c.S3Bucket
	}}

	// Environment-specific requirements
	requirements = map[Environment][]requirement{
		Development: {},
		Test:        {},
		CI:          {jwtSecretReq, dbPasswordReq, dbHostReq},
		Production:  {jwtSecretReq, dbPasswordReq, dbHostReq, s3BucketReq},
	}
)

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	var errs []string

	for _, req := range requirements[GetEnvironment()] {
		if req.Value(cfg) == "" {
			errs = append(errs, ValidationError{req.Field, "is required"}.Error())
		}
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		errs = append(errs, ValidationError{"DB_DRIVER", "must be postgres or sqlite"}.Error())
	}
	if cfg.StorageBackend != StorageDisk && cfg.StorageBackend != StorageS3 {
		errs = append(errs, ValidationError{"STORAGE_BACKEND", "must be disk or s3"}.Error())
	}
	if cfg.PageSize <= 0 {
		errs = append(errs, ValidationError{"PAGE_SIZE", "must be positive"}.Error())
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"TOKEN_TTL", "must be positive"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return nil
}
