package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
	"github.com/tendant/simple-sharelink/pkg/sharelink/repo/memory"
	repopg "github.com/tendant/simple-sharelink/pkg/sharelink/repo/postgres"
	s3storage "github.com/tendant/simple-sharelink/pkg/sharelink/storage/s3"
)

// ServerConfig represents server configuration for the simple-sharelink service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production

	// Public download URL construction
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
	DownloadPrefix string `env:"DOWNLOAD_PATH_PREFIX" env-default:"download"`

	// Link policy
	DefaultExpirySecs     int64 `env:"DEFAULT_EXPIRY_SECS" env-default:"3600"`
	SignerFailureRollback bool  `env:"SIGNER_FAILURE_ROLLBACK" env-default:"false"`

	// Database configuration. Empty or "memory" selects the in-memory
	// store; a postgres:// URL selects the durable store.
	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"*"`

	S3   S3Config
	Auth AuthConfig
}

// S3Config represents configuration for the object store signer
type S3Config struct {
	Endpoint            string `env:"S3_ENDPOINT" env-default:""`
	Region              string `env:"S3_REGION" env-default:"us-east-1"`
	Bucket              string `env:"S3_BUCKET"`
	AccessKeyID         string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey     string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	UsePathStyle        bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PresignDurationSecs int    `env:"S3_PRESIGN_DURATION_SECS" env-default:"300"`
}

// AuthConfig represents configuration for the admin bearer-token gate
type AuthConfig struct {
	AdminUsername     string `env:"ADMIN_USERNAME" env-default:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTExpiryMinutes  int64  `env:"JWT_EXP_MINUTES" env-default:"60"`
}

// Load reads the server configuration from the environment and validates it.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.DownloadPrefix = strings.Trim(cfg.DownloadPrefix, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.S3.Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.AdminPasswordHash == "" {
		return errors.New("ADMIN_PASSWORD_HASH is required")
	}
	if c.DefaultExpirySecs <= 0 {
		return errors.New("DEFAULT_EXPIRY_SECS must be positive")
	}
	if c.DatabaseURL != "" && c.DatabaseURL != "memory" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format (use 'memory' or 'postgresql://...')")
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
// The returned cleanup function releases the storage handle and must be
// called at shutdown.
func (c *ServerConfig) BuildService(ctx context.Context) (sharelink.Service, func(), error) {
	repo, cleanup, err := c.buildRepository(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	signer, err := s3storage.New(s3storage.Config{
		Endpoint:        c.S3.Endpoint,
		Region:          c.S3.Region,
		Bucket:          c.S3.Bucket,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		UsePathStyle:    c.S3.UsePathStyle,
		PresignDuration: c.S3.PresignDurationSecs,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build signer: %w", err)
	}

	svc, err := sharelink.New(
		sharelink.WithRepository(repo),
		sharelink.WithSigner(signer),
		sharelink.WithBrowser(signer),
		sharelink.WithDefaultExpiry(time.Duration(c.DefaultExpirySecs)*time.Second),
		sharelink.WithPublicURL(c.PublicBaseURL, c.DownloadPrefix),
		sharelink.WithSignerFailureRollback(c.SignerFailureRollback),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (sharelink.Repository, func(), error) {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, c.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := repopg.NewWithPool(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repo, pool.Close, nil
}
