package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/exp/slices"
)

// WithEnv reads every field from the process environment, falling back to
// the env-default tag for unset variables. Options applied before WithEnv
// are overwritten, so it normally comes first.
//
// Environment variables:
//
//	PORT, ENVIRONMENT, API_PREFIX
//	UPSTREAM_API_BASE_URL, UPSTREAM_TIMEOUT, UPSTREAM_MAX_BODY_BYTES
//	RESOURCES_DATABASE_URL ("memory" or "postgres://..."), RESOURCES_DB_SCHEMA, RESOURCES_DB_MIGRATE
//	RESOURCE_STORAGE_URL ("memory://", "file://<root>" or "s3://<bucket>[/<prefix>]")
//	RESOURCE_MAX_UPLOAD_BYTES, RESOURCE_ALLOWED_EXTENSIONS
//	AWS_S3_ENDPOINT, AWS_S3_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY,
//	AWS_S3_USE_PATH_STYLE, AWS_S3_CREATE_BUCKET
//	JWT_SECRET, JWT_ALGORITHM
//	CORS_ALLOWED_ORIGINS
func WithEnv() Option {
	return func(c *Config) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		c.Resources.AllowedExtensions = normalizeExtensions(c.Resources.AllowedExtensions)
		c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
		return nil
	}
}

// Usage returns a description of every supported environment variable.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" && !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
