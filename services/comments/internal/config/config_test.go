package config

import (
	"strings"
	"testing"
	"time"

	platform "github.com/example/devtube/internal/platform/config"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GRPC_ADDR", "")
	t.Setenv("LIST_CACHE_TTL", "")
	t.Setenv("CATALOG_BASE_URL", "http://catalog:8080/")

	cfg, err := Load(platform.AppConfig{Env: "development"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Production || cfg.GRPCAddr != ":9090" || cfg.ListCacheTTL != 30*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CatalogBaseURL != "http://catalog:8080" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.CatalogBaseURL)
	}
	if cfg.Breaker.ConsecutiveFailures != 5 || cfg.MaxReactionAttempts != 16 {
		t.Fatalf("unexpected breaker/reaction defaults %+v", cfg)
	}
}

func TestLoad_ProductionRequiresBackends(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CATALOG_BASE_URL", "")

	_, err := Load(platform.AppConfig{Env: "production"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "CATALOG_BASE_URL, DATABASE_URL") {
		t.Fatalf("unexpected error %q", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/comments")
	t.Setenv("CATALOG_BASE_URL", "http://catalog")
	cfg, err := Load(platform.AppConfig{Env: "production"})
	if err != nil || !cfg.Production {
		t.Fatalf("expected production config, got %+v %v", cfg, err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CB_CONSECUTIVE_FAILURES", "0")
	t.Setenv("DIRECTORY_CACHE_TTL", "5m")
	t.Setenv("RENDER_MARKDOWN", "false")

	cfg, err := Load(platform.AppConfig{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Breaker.ConsecutiveFailures != 1 {
		t.Fatalf("failures must be at least 1, got %d", cfg.Breaker.ConsecutiveFailures)
	}
	if cfg.DirectoryCacheTTL != 5*time.Minute || cfg.RenderMarkdown {
		t.Fatalf("overrides ignored: %+v", cfg)
	}
}
