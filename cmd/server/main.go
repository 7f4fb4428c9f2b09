package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"Collage/internal/api/middleware"
	"Collage/internal/api/routes"
	"Collage/internal/config"
	"Collage/internal/core/feed"
	"Collage/internal/core/interactions"
	"Collage/internal/core/viewed"
	postgresRepo "Collage/internal/db/postgres"
	"Collage/internal/db/rediscache"
	"Collage/internal/logger"
	"Collage/internal/metrics"
	"Collage/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgresRepo.Open(ctx, cfg.DatabaseURL, postgresRepo.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpen,
		MaxIdleConns:    cfg.DBMaxIdle,
		ConnMaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer closeDB(db, log)
	log.Info("connected to database")

	if err := postgresRepo.Migrate(db); err != nil {
		return err
	}
	log.Info("migrations completed successfully")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector(registry)

	// Initialize repositories
	userRepo := postgresRepo.NewUserRepository(db)
	collageRepo := postgresRepo.NewCollageRepository(db)
	viewedRepo := postgresRepo.NewViewedRepository(db)
	interactionRepo := postgresRepo.NewInteractionRepository(db)

	// Scope resolution, optionally cached in Redis
	var resolver feed.ScopeResolver = feed.NewScopeResolver(userRepo, postgresRepo.NewScopeRepository(db))
	var invalidator interactions.ScopeInvalidator
	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer closeRedis(client, log)

		cache := rediscache.NewScopeCache(resolver, client, cfg.ScopeCacheTTL, m, log)
		resolver = cache
		invalidator = cache
		log.Info("scope cache enabled", "ttl", cfg.ScopeCacheTTL)
	}

	viewedService := viewed.NewViewedService(viewedRepo, log)
	recorder := viewed.NewRecorder(viewedService, viewed.RecorderConfig{
		Workers:    cfg.RecorderWorkers,
		QueueSize:  cfg.RecorderQueueSize,
		Timeout:    cfg.RecorderTimeout,
		MaxRetries: uint64(max(cfg.RecorderRetries, 0)),
	}, m, log)

	feedService := feed.NewFeedService(feed.ServiceDeps{
		Resolver:  resolver,
		Paginator: feed.NewPaginator(postgresRepo.NewFeedRepository(db), feed.NewCursorCodec(cfg.CursorSecret)),
		Assembler: feed.NewAssembler(collageRepo, userRepo, feed.AssemblerConfig{
			AuthorCacheSize: cfg.AuthorCacheSize,
			AuthorCacheTTL:  cfg.AuthorCacheTTL,
		}, m, log),
		Viewed:   viewedService,
		Recorder: recorder,
		Metrics:  m,
		Logger:   log,
		Limits:   feed.Limits{Default: cfg.FeedDefaultLimit, Max: cfg.FeedMaxLimit},
	})

	// Interaction stream keeps follows, reposts and archive flags current
	interactionService := interactions.NewInteractionService(interactionRepo, invalidator, log)
	if cfg.InteractionsWSURL != "" {
		connector := stream.NewConnector(
			stream.NewConsumer(interactionService, m, log),
			cfg.InteractionsWSURL,
			cfg.ReconnectEvery,
			log,
		)
		go func() {
			if err := connector.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("interaction stream consumer stopped", "error", err)
			}
		}()
	} else {
		log.Warn("INTERACTIONS_WS_URL not set; follows and reposts will not update")
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier, log)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go rateLimiter.StartCleanup(cfg.RateLimitWindow, ctx.Done())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	routes.RegisterFeedRoutes(r, feedService, authMiddleware, rateLimiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler(registry))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Collage AppView starting", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown incomplete", "error", err)
	}
	// Drain queued views after the last request has been served
	if err := recorder.Close(shutdownCtx); err != nil {
		log.Warn("view recorder did not drain", "error", err)
	}

	return nil
}

// buildVerifier accepts HS256 and JWKS tokens when both are configured
func buildVerifier(cfg *config.Config) (middleware.TokenVerifier, error) {
	var verifiers middleware.MultiVerifier
	if cfg.HS256Secret != "" {
		verifiers = append(verifiers, middleware.NewHS256Verifier(cfg.HS256Secret, cfg.AuthIssuer))
	}
	if cfg.JWKSPath != "" {
		jwks, err := middleware.LoadJWKSVerifier(cfg.JWKSPath, cfg.AuthIssuer)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, jwks)
	}
	if len(verifiers) == 1 {
		return verifiers[0], nil
	}
	return verifiers, nil
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("failed to close database", "error", err)
	}
}

func closeRedis(client *redis.Client, log *slog.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("failed to close redis client", "error", err)
	}
}
