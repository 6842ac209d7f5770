package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/tendant/campus-gateway/pkg/forwarder"
	"github.com/tendant/campus-gateway/pkg/resourcestore"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of
// library defaults, then validates it.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Port:        "3001",
		Environment: "development",
		APIPrefix:   "/api/v1",
		Upstream: UpstreamConfig{
			Timeout:      forwarder.DefaultTimeout,
			MaxBodyBytes: 10 << 20,
		},
		Resources: ResourceConfig{
			DatabaseURL:       "memory",
			DBSchema:          "public",
			Migrate:           true,
			StorageURL:        "file://./uploads/node_resources",
			MaxUploadBytes:    resourcestore.DefaultMaxUploadBytes,
			AllowedExtensions: append([]string(nil), resourcestore.DefaultAllowedExtensions...),
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Auth: AuthConfig{
			JWTAlgorithm: "HS256",
		},
		CORSAllowedOrigins: []string{"*"},
	}
}

// Config is built once at startup and passed to the builders.
type Config struct {
	Port        string `env:"PORT" env-default:"3001"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	APIPrefix   string `env:"API_PREFIX" env-default:"/api/v1"`

	Upstream  UpstreamConfig
	Resources ResourceConfig
	S3        S3Config
	Auth      AuthConfig

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
}

// UpstreamConfig configures the forwarder
type UpstreamConfig struct {
	BaseURL      string        `env:"UPSTREAM_API_BASE_URL"`
	Timeout      time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"15s"`
	MaxBodyBytes int64         `env:"UPSTREAM_MAX_BODY_BYTES" env-default:"10485760"`
}

// ResourceConfig configures the resource store
type ResourceConfig struct {
	// DatabaseURL is "memory" or a postgres:// connection string.
	DatabaseURL string `env:"RESOURCES_DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"RESOURCES_DB_SCHEMA" env-default:"public"`
	Migrate     bool   `env:"RESOURCES_DB_MIGRATE" env-default:"true"`

	// StorageURL is one of memory://, file://<root> or s3://<bucket>[/<prefix>].
	StorageURL        string   `env:"RESOURCE_STORAGE_URL" env-default:"file://./uploads/node_resources"`
	MaxUploadBytes    int64    `env:"RESOURCE_MAX_UPLOAD_BYTES" env-default:"10485760"`
	AllowedExtensions []string `env:"RESOURCE_ALLOWED_EXTENSIONS" env-default:"pdf,doc,docx,txt,ppt,pptx,xls,xlsx,zip,png,jpg,jpeg,gif" env-separator:","`
}

// S3Config holds settings for s3:// storage URLs
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
	// SSEAlgorithm enables server-side encryption when set (AES256 or aws:kms).
	SSEAlgorithm string `env:"AWS_S3_SSE_ALGORITHM"`
	SSEKMSKeyID  string `env:"AWS_S3_SSE_KMS_KEY_ID"`
}

// AuthConfig holds the key used to verify caller identity tokens. An empty
// secret disables token verification.
type AuthConfig struct {
	JWTSecret    string `env:"JWT_SECRET"`
	JWTAlgorithm string `env:"JWT_ALGORITHM" env-default:"HS256"`
}

var supportedJWTAlgorithms = []string{"HS256", "HS384", "HS512"}

var supportedSSEAlgorithms = []string{"AES256", "aws:kms"}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("api prefix must start with '/': %q", c.APIPrefix)
	}

	if c.Upstream.BaseURL == "" {
		return errors.New("upstream api base url is required")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream api base url must be an absolute http(s) url: %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}

	if _, err := c.databaseType(); err != nil {
		return err
	}
	if _, _, err := parseStorageURL(c.Resources.StorageURL); err != nil {
		return err
	}
	if c.Resources.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}

	if alg := c.S3.SSEAlgorithm; alg != "" && !slices.Contains(supportedSSEAlgorithms, alg) {
		return fmt.Errorf("unsupported AWS_S3_SSE_ALGORITHM %q (supported: %s)",
			alg, strings.Join(supportedSSEAlgorithms, ", "))
	}
	if c.Auth.JWTSecret != "" && !slices.Contains(supportedJWTAlgorithms, c.Auth.JWTAlgorithm) {
		return fmt.Errorf("unsupported jwt algorithm %q (use one of %s)",
			c.Auth.JWTAlgorithm, strings.Join(supportedJWTAlgorithms, ", "))
	}

	return nil
}

// databaseType returns "memory" or "postgres" for the configured database url.
func (c *Config) databaseType() (string, error) {
	dbURL := c.Resources.DatabaseURL
	switch {
	case dbURL == "" || dbURL == "memory":
		return "memory", nil
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported RESOURCES_DATABASE_URL format: %s (use 'memory' or 'postgres://...')", dbURL)
	}
}

// parseStorageURL splits a storage url into its backend type and location.
func parseStorageURL(storageURL string) (string, string, error) {
	switch {
	case storageURL == "" || storageURL == "memory" || storageURL == "memory://":
		return "memory", "", nil
	case strings.HasPrefix(storageURL, "file://"):
		root := strings.TrimPrefix(storageURL, "file://")
		if root == "" {
			return "", "", errors.New("filesystem path cannot be empty in RESOURCE_STORAGE_URL")
		}
		return "fs", root, nil
	case strings.HasPrefix(storageURL, "s3://"):
		location := strings.Trim(strings.TrimPrefix(storageURL, "s3://"), "/")
		if location == "" {
			return "", "", errors.New("S3 bucket name cannot be empty in RESOURCE_STORAGE_URL")
		}
		return "s3", location, nil
	default:
		return "", "", fmt.Errorf("unsupported RESOURCE_STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
	}
}
