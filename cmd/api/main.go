package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/curatedthreads/threads-backend/internal/api"
	"github.com/curatedthreads/threads-backend/internal/config"
	"github.com/curatedthreads/threads-backend/internal/content"
	gdb "github.com/curatedthreads/threads-backend/internal/db"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/feed"
	"github.com/curatedthreads/threads-backend/internal/log"
	"github.com/curatedthreads/threads-backend/internal/metrics"
	"github.com/curatedthreads/threads-backend/internal/store"
	"github.com/curatedthreads/threads-backend/internal/upstream"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting curated threads API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"store", cfg.Store.Type,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("threads-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Initialize content store
	database, err := gdb.NewDatabase(gdb.Config{Type: cfg.Store.Type, DSN: cfg.Store.DSN})
	if err != nil {
		logger.Fatalw("Failed to create store", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gdb.ConnectAndMigrate(ctx, database, gdb.AllSchemas()); err != nil {
		logger.Fatalw("Failed to initialize store", "error", err)
	}
	defer database.Disconnect(context.Background())
	logger.Infow("Store initialized")

	if cfg.Store.Seed {
		if err := database.Seed(ctx, entities.CategorySchema, gdb.CategoryFixtures); err != nil {
			logger.Warnw("Category seeding failed", "error", err)
		}
		if err := database.Seed(ctx, entities.PostSchema, gdb.PostFixtures); err != nil {
			logger.Warnw("Post seeding failed", "error", err)
		}
	}

	// Setup cache (falls back to in-memory when Redis is unreachable)
	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	if err := cache.Ping(ctx); err != nil {
		logger.Fatalw("Cache ping failed", "error", err)
	}
	logger.Infow("Cache ready", "in_memory", cache.IsInMemoryMode())

	// Setup tweet API client
	tweetClient := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Host:    cfg.Upstream.Host,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	}, logger, metricsObj)
	if !tweetClient.Configured() {
		logger.Warnw("Tweet API key not configured; ingestion will be rejected")
	}

	// Setup services
	postSvc := content.NewPostService(database, logger)
	categorySvc := content.NewCategoryService(database, logger)
	moderationSvc := content.NewModerationService(database, logger)
	ingestSvc := content.NewIngestService(database, tweetClient, logger)
	feedSvc := feed.NewService(postSvc, cache, logger, feed.ServiceOptions{
		CacheTTL: cfg.Feed.CacheTTL,
		Debounce: cfg.Feed.DebounceDelay,
		PageSize: cfg.Feed.PageSize,
	})

	// Setup API handler and middleware
	handler := api.NewHandler(postSvc, categorySvc, moderationSvc, ingestSvc, feedSvc, database, cache, cfg, logger, metricsObj)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)
	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Add metrics endpoint
	router.Handle("/metrics", metricsHandler)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
