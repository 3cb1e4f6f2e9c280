package main

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	commentsv1 "github.com/example/devtube/gen/comments/v1"
	"github.com/example/devtube/internal/platform/auth"
	"github.com/example/devtube/internal/platform/config"
	"github.com/example/devtube/internal/platform/db"
	"github.com/example/devtube/internal/platform/events"
	"github.com/example/devtube/internal/platform/httpserver"
	"github.com/example/devtube/internal/platform/logging"
	"github.com/example/devtube/internal/platform/natsconn"
	"github.com/example/devtube/internal/platform/run"
	"github.com/example/devtube/services/comments/internal/cache"
	svcconfig "github.com/example/devtube/services/comments/internal/config"
	"github.com/example/devtube/services/comments/internal/directory"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/grpcapi"
	"github.com/example/devtube/services/comments/internal/handlers"
	"github.com/example/devtube/services/comments/internal/render"
	"github.com/example/devtube/services/comments/internal/service"
	"github.com/example/devtube/services/comments/internal/store"
	"github.com/example/devtube/services/comments/internal/worker"
)

func main() {
	app, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(app.ServiceName, app.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := svcconfig.Load(app)
	if err != nil {
		fatal(log, "invalid configuration", err)
	}

	ctx := context.Background()

	comments, pool := initStore(ctx, log, cfg)
	if pool != nil {
		defer pool.Close()
	}
	threadCache, closeCache := initCache(ctx, log, cfg)
	defer closeCache()
	videos, profiles, forget := initDirectory(log, cfg)

	var js nats.JetStreamContext
	if cfg.NATSURL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: app.ServiceName})
		if err != nil {
			log.Error("nats connect, running without events", zap.Error(err))
		} else {
			defer nc.Close()
			js = initJetStream(log, nc)
		}
	}

	var renderer service.Renderer = render.Plain{}
	if cfg.RenderMarkdown {
		renderer = render.NewMarkdown()
	}

	svc, err := service.New(service.Options{
		Store:               comments,
		Videos:              videos,
		Profiles:            profiles,
		Cache:               threadCache,
		Renderer:            renderer,
		Events:              events.New(js, log),
		Logger:              log,
		MaxReactionAttempts: cfg.MaxReactionAttempts,
	})
	if err != nil {
		fatal(log, "service init", err)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET not set, using an insecure development secret")
		secret = "dev-insecure-secret"
	}
	verifier := auth.JWTVerifier{Secret: []byte(secret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: readiness(pool), Logger: log})
	handlers.Mount(r, svc, verifier)
	srv := httpserver.New(httpserver.Options{Addr: app.HTTP.Addr, Router: r})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		fatal(log, "grpc listen", err)
	}
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcapi.LoggingInterceptor(log)))
	commentsv1.RegisterCommentServiceServer(grpcSrv, grpcapi.NewServer(svc))
	go func() {
		log.Info("grpc server starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if js != nil {
			consumer := worker.NewVideoConsumer(svc, log, worker.Options{BeforePurge: forget})
			go func() {
				if err := consumer.Run(ctx, js); err != nil {
					log.Error("video consumer stopped", zap.Error(err))
				}
			}()
		}
		return srv.Start(log)
	})

	run.StopGRPC(grpcSrv, cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	_ = srv.Shutdown(shutdownCtx)
	cancel()

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

func fatal(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	_ = log.Sync()
	run.Exit(1)
}

// initStore selects the CommentStore backend. Production requires Postgres;
// elsewhere an unreachable database falls back to the in-memory store.
func initStore(ctx context.Context, log *zap.Logger, cfg svcconfig.Config) (store.CommentStore, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory comment store (development only)")
		return store.NewInMemoryCommentStore(), nil
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.Open(openCtx, db.Options{DSN: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err == nil {
		if err = store.EnsureSchema(openCtx, pool); err != nil {
			pool.Close()
		}
	}
	if err != nil {
		if cfg.Production {
			fatal(log, "postgres is required in production but unavailable", err)
		}
		log.Warn("postgres unavailable, falling back to in-memory comment store", zap.Error(err))
		return store.NewInMemoryCommentStore(), nil
	}

	log.Info("comments store: postgres")
	return store.NewPostgresCommentStore(pool), pool
}

func initCache(ctx context.Context, log *zap.Logger, cfg svcconfig.Config) (cache.ThreadCache, func()) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, thread cache disabled")
		return cache.Nop{}, func() {}
	}
	rc, err := cache.NewRedisThreadCache(cfg.RedisURL, cfg.ListCacheTTL, log)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rc.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = rc.Close()
		}
	}
	if err != nil {
		log.Warn("redis unavailable, thread cache disabled", zap.Error(err))
		return cache.Nop{}, func() {}
	}
	log.Info("thread cache: redis", zap.Duration("ttl", cfg.ListCacheTTL))
	return rc, func() { _ = rc.Close() }
}

// initDirectory wires the catalog lookups. Without CATALOG_BASE_URL an
// in-memory directory seeded from DEV_VIDEOS ("id:creator,...") is used.
func initDirectory(log *zap.Logger, cfg svcconfig.Config) (directory.Videos, directory.Profiles, func(string)) {
	if cfg.CatalogBaseURL == "" {
		mem := directory.NewMemory()
		for _, v := range parseDevVideos(config.String("DEV_VIDEOS", "")) {
			mem.PutVideo(v)
		}
		log.Warn("CATALOG_BASE_URL not set, using in-memory directory (development only)")
		return mem, mem, mem.DeleteVideo
	}

	breaker := directory.NewBreaker(directory.BreakerSettings{
		Name:                "catalog",
		MaxRequests:         cfg.Breaker.MaxRequests,
		Interval:            cfg.Breaker.Interval,
		Timeout:             cfg.Breaker.Timeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
	}, log)
	client := directory.NewClient(cfg.CatalogBaseURL, directory.ClientConfig{
		MaxRetries:     cfg.Retry.MaxRetries,
		RetryBaseDelay: cfg.Retry.BaseDelay,
		Timeout:        cfg.Retry.Timeout,
	}, directory.WithCircuitBreaker(breaker), directory.WithLogger(log))

	cached, err := directory.NewCached(client, client, cfg.DirectoryCacheSize, cfg.DirectoryCacheTTL)
	if err != nil {
		log.Warn("directory cache disabled", zap.Error(err))
		return client, client, func(string) {}
	}
	return cached, cached, cached.ForgetVideo
}

func parseDevVideos(raw string) []domain.Video {
	var out []domain.Video
	for _, part := range strings.Split(raw, ",") {
		id, creator, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || id == "" || creator == "" {
			continue
		}
		out = append(out, domain.Video{ID: id, CreatorID: creator})
	}
	return out
}

func initJetStream(log *zap.Logger, nc *nats.Conn) nats.JetStreamContext {
	js, err := nc.JetStream()
	if err != nil {
		log.Error("jetstream unavailable, running without events", zap.Error(err))
		return nil
	}
	if err := natsconn.EnsureStream(js, events.StreamComments, "comments.>"); err != nil {
		log.Warn("ensure comments stream", zap.Error(err))
	}
	if err := natsconn.EnsureStream(js, events.StreamVideos, "videos.>"); err != nil {
		log.Warn("ensure videos stream", zap.Error(err))
	}
	return js
}

func readiness(pool *pgxpool.Pool) func() error {
	if pool == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
