package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *Config) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithUpstream sets the upstream API base url and call timeout. A zero
// timeout keeps the current value.
func WithUpstream(baseURL string, timeout time.Duration) Option {
	return func(c *Config) error {
		if baseURL == "" {
			return fmt.Errorf("upstream base url cannot be empty")
		}
		c.Upstream.BaseURL = baseURL
		if timeout > 0 {
			c.Upstream.Timeout = timeout
		}
		return nil
	}
}

// WithDatabase sets the resource metadata database ("memory" or a postgres url)
func WithDatabase(databaseURL, schema string) Option {
	return func(c *Config) error {
		c.Resources.DatabaseURL = databaseURL
		if schema != "" {
			c.Resources.DBSchema = schema
		}
		return nil
	}
}

// WithStorageURL sets the blob storage location
func WithStorageURL(storageURL string) Option {
	return func(c *Config) error {
		if _, _, err := parseStorageURL(storageURL); err != nil {
			return err
		}
		c.Resources.StorageURL = storageURL
		return nil
	}
}

// WithUploadLimits sets the upload size cap and extension allow-list. A nil
// list keeps the current allow-list.
func WithUploadLimits(maxBytes int64, allowedExtensions []string) Option {
	return func(c *Config) error {
		if maxBytes <= 0 {
			return fmt.Errorf("max upload bytes must be positive, got %d", maxBytes)
		}
		c.Resources.MaxUploadBytes = maxBytes
		if allowedExtensions != nil {
			c.Resources.AllowedExtensions = normalizeExtensions(allowedExtensions)
		}
		return nil
	}
}

// WithJWT sets the token verification secret and algorithm
func WithJWT(secret, algorithm string) Option {
	return func(c *Config) error {
		c.Auth.JWTSecret = secret
		if algorithm != "" {
			c.Auth.JWTAlgorithm = algorithm
		}
		return nil
	}
}

// WithCORSOrigins sets the allowed cross-origin origins
func WithCORSOrigins(origins ...string) Option {
	return func(c *Config) error {
		c.CORSAllowedOrigins = trimAll(origins)
		return nil
	}
}
