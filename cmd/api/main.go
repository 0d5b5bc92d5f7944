// Package main is the entry point for the matching API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ederlyn/pairwise/internal/api"
	"github.com/ederlyn/pairwise/internal/auth"
	"github.com/ederlyn/pairwise/internal/config"
	"github.com/ederlyn/pairwise/internal/db"
	"github.com/ederlyn/pairwise/internal/embedding"
	"github.com/ederlyn/pairwise/internal/exclusion"
	"github.com/ederlyn/pairwise/internal/health"
	"github.com/ederlyn/pairwise/internal/interaction"
	"github.com/ederlyn/pairwise/internal/match"
	"github.com/ederlyn/pairwise/internal/middleware"
	"github.com/ederlyn/pairwise/internal/profile"
	"github.com/ederlyn/pairwise/internal/tracing"
)

const serviceName = "pairwise-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Pairwise Matching API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summaryAttrs := make([]any, 0, 32)
	for k, v := range cfg.LogSummary() {
		summaryAttrs = append(summaryAttrs, k, v)
	}
	logger.Info("configuration loaded", summaryAttrs...)

	ctx := context.Background()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		profiles     profile.Repository
		blocks       exclusion.Registry
		interactions interaction.Log
		embeddings   embedding.Provider
		dbChecker    api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("failed to close database", "error", err)
			}
		}()
		profiles = profile.NewPostgresRepository(sqlDB, logger)
		blocks = exclusion.NewPostgresRegistry(sqlDB, logger)
		interactions = interaction.NewPostgresLog(sqlDB, logger)
		dbChecker = health.NewDBChecker(sqlDB)

		if cfg.EmbeddingEnabled {
			embeddings = embedding.NewPostgresProvider(sqlDB, logger)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		profiles = profile.NewInMemoryRepository()
		blocks = exclusion.NewInMemoryRegistry()
		interactions = interaction.NewInMemoryLog()
		if cfg.EmbeddingEnabled {
			embeddings = embedding.NewInMemoryProvider()
		}
	}

	// Result cache: optional, the engine runs uncached without Redis.
	var (
		resultCache  *match.Cache
		redisChecker api.HealthChecker
	)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}()
		redisChecker = health.NewRedisChecker(redisClient)
		if cfg.CacheEnabled {
			resultCache = match.NewCache(redisClient, cfg.CacheTTL, logger)
		}
	}

	// Weight presets, with optional calibration overrides.
	presets := match.DefaultPresets()
	if cfg.CalibrationPath != "" {
		loaded, err := match.LoadCalibration(cfg.CalibrationPath, logger)
		if err != nil {
			logger.Warn("calibration load failed, using defaults", "error", err)
		}
		presets = loaded
	}

	// Metrics on a private registry so tests never collide on the global one.
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}
	matchMetrics := match.NewMetrics()
	if err := matchMetrics.Register(registry); err != nil {
		logger.Error("failed to register match metrics", "error", err)
		os.Exit(1)
	}

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down tracer provider", "error", err)
		}
	}()

	engine := match.NewEngine(match.EngineOptions{
		Profiles:     profiles,
		Blocks:       blocks,
		Interactions: interactions,
		Embeddings:   embeddings,
		Presets:      presets,
		Policy: match.Policy{
			PassPolicy:        cfg.PassPolicy,
			DefaultPreset:     cfg.MatchPreset,
			AgeToleranceYears: cfg.AgeToleranceYears,
			ActivityHalfLife:  cfg.ActivityHalfLife,
			OnlineWindow:      cfg.OnlineWindow,
			NewUserWindow:     cfg.NewUserWindow,
		},
		Cache:   resultCache,
		Metrics: matchMetrics,
		Logger:  logger,
	})

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	authed := auth.Middleware(jwtService)

	// A typed nil *match.Cache must not reach the interface field.
	var invalidator api.CacheInvalidator
	if resultCache != nil {
		invalidator = resultCache
	}

	matchHandlers := api.NewMatchHandlers(engine, logger)
	interactionHandlers := api.NewInteractionHandlers(interactions, blocks, profiles, invalidator, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /matches", authed(http.HandlerFunc(matchHandlers.Matches)))
	mux.Handle("POST /interactions", authed(http.HandlerFunc(interactionHandlers.RecordDecision)))
	mux.Handle("POST /blocks", authed(http.HandlerFunc(interactionHandlers.Block)))
	mux.Handle("DELETE /blocks/{target}", authed(http.HandlerFunc(interactionHandlers.Unblock)))
	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.CORSAllowedOrigins

	// Middleware order: RequestID -> Logging -> Metrics -> CORS -> routes.
	var handler http.Handler = middleware.CORS(corsConfig)(mux)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(middleware.Logging(logger)(handler))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
