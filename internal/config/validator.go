package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ValidateEnv validates that all required environment variables are set
func ValidateEnv(requiredVars []string) error {
	var missing []string

	for _, varName := range requiredVars {
		value := os.Getenv(varName)
		if value == "" {
			missing = append(missing, varName)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.StoreBackend) {
		return fmt.Errorf("STORE_BACKEND must be one of %s, got %q", strings.Join(Backends, ", "), c.StoreBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}

	switch c.StoreBackend {
	case BackendPostgres, BackendORM:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s backend requires DATABASE_URL", c.StoreBackend)
		}
	case BackendS3:
		if c.S3.Endpoint == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" || c.S3.Bucket == "" {
			return fmt.Errorf("s3 backend requires S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY and S3_BUCKET_NAME")
		}
	}

	if c.TracesExporter != "none" && c.TracesExporter != "stdout" {
		return fmt.Errorf("OTEL_TRACES_EXPORTER must be none or stdout, got %q", c.TracesExporter)
	}
	return nil
}
