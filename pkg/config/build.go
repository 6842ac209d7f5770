package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/campus-gateway/pkg/forwarder"
	"github.com/tendant/campus-gateway/pkg/resourcestore"
	"github.com/tendant/campus-gateway/pkg/resourcestore/repo/memory"
	repopg "github.com/tendant/campus-gateway/pkg/resourcestore/repo/postgres"
	fsstorage "github.com/tendant/campus-gateway/pkg/resourcestore/storage/fs"
	memorystorage "github.com/tendant/campus-gateway/pkg/resourcestore/storage/memory"
	s3storage "github.com/tendant/campus-gateway/pkg/resourcestore/storage/s3"
)

// UploadPolicy returns the upload limits of the configuration.
func (c *Config) UploadPolicy() resourcestore.UploadPolicy {
	return resourcestore.UploadPolicy{
		MaxBytes:          c.Resources.MaxUploadBytes,
		AllowedExtensions: append([]string(nil), c.Resources.AllowedExtensions...),
	}
}

// BuildService creates the resource store from the configuration. The
// returned cleanup func releases database connections.
func (c *Config) BuildService(ctx context.Context) (resourcestore.Service, func(), error) {
	cleanup := func() {}

	repo, closeRepo, err := c.buildRepository(ctx)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to build repository: %w", err)
	}

	name, store, err := c.buildBlobStore(ctx)
	if err != nil {
		closeRepo()
		return nil, cleanup, fmt.Errorf("failed to build storage backend: %w", err)
	}

	svc, err := resourcestore.New(
		resourcestore.WithRepository(repo),
		resourcestore.WithBlobStore(name, store),
		resourcestore.WithUploadPolicy(c.UploadPolicy()),
		resourcestore.WithEventSink(resourcestore.NewLoggingEventSink(slog.Default())),
	)
	if err != nil {
		closeRepo()
		return nil, cleanup, err
	}
	return svc, closeRepo, nil
}

func (c *Config) buildRepository(ctx context.Context) (resourcestore.Repository, func(), error) {
	dbType, err := c.databaseType()
	if err != nil {
		return nil, nil, err
	}

	switch dbType {
	case "memory":
		slog.Warn("Using in-memory resource metadata; records are lost on restart")
		return memory.New(), func() {}, nil
	default:
		if c.Resources.Migrate {
			if err := repopg.Migrate(c.Resources.DatabaseURL, c.Resources.DBSchema, slog.Default()); err != nil {
				return nil, nil, err
			}
		}
		pool, err := NewDBPool(ctx, c.Resources.DatabaseURL, c.Resources.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	}
}

// NewDBPool connects to Postgres with schema as the search_path and pings it.
func NewDBPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func (c *Config) buildBlobStore(ctx context.Context) (string, resourcestore.BlobStore, error) {
	backendType, location, err := parseStorageURL(c.Resources.StorageURL)
	if err != nil {
		return "", nil, err
	}

	switch backendType {
	case "memory":
		return "memory", memorystorage.New(), nil
	case "fs":
		store, err := fsstorage.New(fsstorage.Config{BaseDir: location})
		if err != nil {
			return "", nil, err
		}
		return "fs", store, nil
	default:
		bucket, prefix, _ := strings.Cut(location, "/")
		store, err := s3storage.New(ctx, c.s3StorageConfig(bucket, prefix))
		if err != nil {
			return "", nil, err
		}
		return "s3", store, nil
	}
}

// BuildForwarder creates the upstream relay.
func (c *Config) BuildForwarder() (*forwarder.Forwarder, error) {
	return forwarder.New(forwarder.Config{
		BaseURL: c.Upstream.BaseURL,
		Timeout: c.Upstream.Timeout,
	}, forwarder.WithLogger(slog.Default()))
}

// BuildTokenAuth returns the caller identity token verifier, or nil when no
// secret is configured.
func (c *Config) BuildTokenAuth() *jwtauth.JWTAuth {
	if c.Auth.JWTSecret == "" {
		return nil
	}
	return jwtauth.New(c.Auth.JWTAlgorithm, []byte(c.Auth.JWTSecret), nil)
}

func (c *Config) s3StorageConfig(bucket, prefix string) s3storage.Config {
	return s3storage.Config{
		Region:                 c.S3.Region,
		Bucket:                 bucket,
		Prefix:                 prefix,
		AccessKeyID:            c.S3.AccessKeyID,
		SecretAccessKey:        c.S3.SecretAccessKey,
		Endpoint:               c.S3.Endpoint,
		UsePathStyle:           c.S3.UsePathStyle,
		EnableSSE:              c.S3.SSEAlgorithm != "",
		SSEAlgorithm:           c.S3.SSEAlgorithm,
		SSEKMSKeyID:            c.S3.SSEKMSKeyID,
		CreateBucketIfNotExist: c.S3.CreateBucket,
	}
}
