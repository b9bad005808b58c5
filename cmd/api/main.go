package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/customs/internal/auth"
	"github.com/BradenHooton/customs/internal/background"
	"github.com/BradenHooton/customs/internal/config"
	"github.com/BradenHooton/customs/internal/customs"
	"github.com/BradenHooton/customs/internal/database"
	"github.com/BradenHooton/customs/internal/handlers"
	middlewareCustom "github.com/BradenHooton/customs/internal/middleware"
	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/observability/metrics"
	"github.com/BradenHooton/customs/internal/repositories"
	"github.com/BradenHooton/customs/internal/routes"
	"github.com/BradenHooton/customs/internal/services"
	pkghttp "github.com/BradenHooton/customs/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store", cfg.Store.Backend),
		slog.String("limits_source", cfg.Limits.Source),
	)

	customsMetrics := metrics.New(prometheus.DefaultRegisterer, metrics.Config{Environment: cfg.Server.Env})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis serves as record store, limits source, or both
	var redisClient *redis.Client
	if cfg.Store.Backend == config.BackendRedis || cfg.Limits.Source == config.LimitsSourceRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		defer redisClient.Close()
	}

	// Initialize record store
	store, err := openRecordStore(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to open record store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.close()

	keys, err := services.NewKeyBuilder(cfg.Store.KeyPrefix, cfg.Store.IdentityHashKey)
	if err != nil {
		logger.Error("invalid key configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize limits
	initial := limits.Default()
	holder := limits.NewHolder(initial, logger)
	if cfg.Limits.File != "" {
		candidate, err := limits.ReadFile(cfg.Limits.File)
		if err != nil {
			logger.Error("failed to read limits file", slog.Any("error", err))
			os.Exit(1)
		}
		if initial, err = holder.Apply(candidate); err != nil {
			logger.Error("failed to apply limits file", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var (
		limitsSource background.LimitsSource
		limitsStore  services.LimitsStore
	)
	switch cfg.Limits.Source {
	case config.LimitsSourceRedis:
		repo := repositories.NewRedisLimitsRepository(redisClient, keys.LimitsKey())
		seedCtx, seedCancel := context.WithTimeout(ctx, 5*time.Second)
		if seeded, err := repo.Seed(seedCtx, initial); err != nil {
			logger.Warn("failed to seed limits", slog.Any("error", err))
		} else if seeded {
			logger.Info("seeded limits into redis", slog.String("key", keys.LimitsKey()))
		}
		seedCancel()
		limitsSource, limitsStore = repo, repo
	case config.LimitsSourceFile:
		repo := repositories.NewFileLimitsRepository(cfg.Limits.File)
		limitsSource, limitsStore = repo, repo
	}

	var limitsRefresher *background.LimitsRefresher
	if limitsSource != nil {
		limitsRefresher = background.NewLimitsRefresher(limitsSource, holder, logger, cfg.Limits.PollInterval)
		limitsRefresher.SetMetrics(customsMetrics)
		go limitsRefresher.Start(ctx)
	}

	var cleanupManager *background.CleanupManager
	if store.deleter != nil {
		cleanupManager = background.NewCleanupManager(store.deleter, logger, cfg.Cleanup.Interval)
		go cleanupManager.Start(ctx)
	}

	// IP reputation is optional
	var reputation services.ReputationChecker
	if cfg.Reputation.URL != "" {
		reputation = services.NewReputationService(services.ReputationConfig{
			BaseURL: cfg.Reputation.URL,
			Timeout: cfg.Reputation.Timeout,
		}, logger)
	}

	// Initialize services
	customsService := services.NewCustomsService(
		store.repo,
		holder,
		keys,
		customs.NewFactory(time.Now),
		reputation,
		services.CustomsConfig{
			ReputationEnabled:      cfg.Reputation.EnableCheck && reputation != nil,
			ReputationBlockBelow:   cfg.Reputation.BlockBelow,
			ReputationSuspectBelow: cfg.Reputation.SuspectBelow,
		},
		logger,
	)
	customsService.SetMetrics(customsMetrics)
	limitsService := services.NewLimitsService(holder, limitsStore, logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.AdminJWTSecret, cfg.Auth.AdminTokenExpiry)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	customsHandler := handlers.NewCustomsHandler(customsService, ipConfig, logger)
	adminHandler := handlers.NewAdminHandler(customsService, limitsService, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	routes.RegisterRoutes(router, customsHandler, adminHandler, tokenManager,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.CheckRequestsPerMinute, IPConfig: ipConfig},
		middlewareCustom.RateLimitConfig{RequestsPerMinute: middlewareCustom.DefaultAdminRateLimit().RequestsPerMinute, IPConfig: ipConfig},
		promhttp.Handler(),
	)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	cancel()
	if limitsRefresher != nil {
		limitsRefresher.Stop()
	}
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	// Let in-flight violation reports finish before the stores close
	customsService.Wait()

	logger.Info("server stopped gracefully")
}

type recordStore struct {
	repo    services.RecordRepository
	deleter background.ExpiredRecordDeleter
	close   func()
}

func openRecordStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (*recordStore, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// Decisions fail open, so an unreachable cache is not fatal
			logger.Warn("redis not reachable at startup", slog.Any("error", err))
		}
		return &recordStore{repo: repositories.NewRedisRecordRepository(redisClient), close: func() {}}, nil

	case config.BackendPostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := database.Migrate(migrateCtx, db.Pool); err != nil {
			db.Close()
			return nil, err
		}
		repo := repositories.NewPostgresRecordRepository(db)
		return &recordStore{repo: repo, deleter: repo, close: db.Close}, nil

	case config.BackendSQLite:
		repo, err := repositories.OpenSQLiteRecordRepository(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &recordStore{repo: repo, deleter: repo, close: func() {
			if err := repo.Close(); err != nil {
				logger.Warn("failed to close sqlite store", slog.Any("error", err))
			}
		}}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
