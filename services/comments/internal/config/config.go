// Package config reads the comments service settings from the environment.
package config

import (
	"errors"
	"slices"
	"strings"
	"time"

	platform "github.com/example/devtube/internal/platform/config"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

type Config struct {
	Production bool

	GRPCAddr    string
	DatabaseURL string
	DBMaxConns  int32

	RedisURL     string
	ListCacheTTL time.Duration

	JWTSecret string

	CatalogBaseURL     string
	DirectoryCacheSize int
	DirectoryCacheTTL  time.Duration
	Retry              RetryConfig
	Breaker            BreakerConfig

	NATSURL string

	MaxReactionAttempts int
	RenderMarkdown      bool
	ShutdownTimeout     time.Duration
}

// Load reads the service settings. In production every backing service
// must be configured; elsewhere missing ones fall back to in-memory stand-ins.
func Load(app platform.AppConfig) (Config, error) {
	cfg := Config{
		Production: app.IsProduction(),

		GRPCAddr:    platform.String("GRPC_ADDR", ":9090"),
		DatabaseURL: platform.String("DATABASE_URL", ""),
		DBMaxConns:  int32(platform.Int("DB_MAX_CONNS", 10)),

		RedisURL:     platform.String("REDIS_URL", ""),
		ListCacheTTL: platform.Duration("LIST_CACHE_TTL", 30*time.Second),

		JWTSecret: platform.String("JWT_SECRET", ""),

		CatalogBaseURL:     platform.String("CATALOG_BASE_URL", ""),
		DirectoryCacheSize: platform.Int("DIRECTORY_CACHE_SIZE", 4096),
		DirectoryCacheTTL:  platform.Duration("DIRECTORY_CACHE_TTL", time.Minute),
		Retry: RetryConfig{
			MaxRetries: platform.Int("CATALOG_MAX_RETRIES", 2),
			BaseDelay:  platform.Duration("CATALOG_RETRY_BASE_DELAY", 200*time.Millisecond),
			Timeout:    platform.Duration("CATALOG_TIMEOUT", 3*time.Second),
		},
		Breaker: BreakerConfig{
			MaxRequests:         uint32(max(platform.Int("CB_MAX_REQUESTS", 1), 1)),
			Interval:            platform.Duration("CB_INTERVAL", time.Minute),
			Timeout:             platform.Duration("CB_TIMEOUT", 30*time.Second),
			ConsecutiveFailures: uint32(max(platform.Int("CB_CONSECUTIVE_FAILURES", 5), 1)),
		},

		NATSURL: platform.String("NATS_URL", ""),

		MaxReactionAttempts: platform.Int("REACTION_MAX_ATTEMPTS", 16),
		RenderMarkdown:      platform.Bool("RENDER_MARKDOWN", true),
		ShutdownTimeout:     platform.Duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	cfg.CatalogBaseURL = strings.TrimRight(cfg.CatalogBaseURL, "/")

	if cfg.Production {
		var missing []string
		for key, v := range map[string]string{
			"DATABASE_URL":     cfg.DatabaseURL,
			"JWT_SECRET":       cfg.JWTSecret,
			"CATALOG_BASE_URL": cfg.CatalogBaseURL,
		} {
			if v == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return Config{}, errors.New("required in production: " + strings.Join(missing, ", "))
		}
	}
	return cfg, nil
}
