package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/studioflow/class-payroll-service/internal/cache"
	"github.com/studioflow/class-payroll-service/internal/config"
	"github.com/studioflow/class-payroll-service/internal/events"
	"github.com/studioflow/class-payroll-service/internal/handlers"
	"github.com/studioflow/class-payroll-service/internal/notify"
	"github.com/studioflow/class-payroll-service/internal/repositories/postgres"
	"github.com/studioflow/class-payroll-service/internal/services"
	"github.com/studioflow/class-payroll-service/internal/utils"
	"github.com/studioflow/class-payroll-service/internal/validator"
	"github.com/studioflow/class-payroll-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// money goes out as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured); reports are computed uncached without it
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, report cache disabled", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient, cfg.ReportCacheTTL)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:           db,
		RedisClient:  redisClient,
		CacheManager: cacheManager,
		AutoMigrate:  cfg.AutoMigrate,
		Seed: postgres.SeedConfig{
			AdminName:     cfg.Bootstrap.AdminName,
			AdminEmail:    cfg.Bootstrap.AdminEmail,
			AdminPassword: cfg.Bootstrap.AdminPassword,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Events: in-process delivery to the cache invalidator, kafka mirror when configured
	publisher, err := events.NewWatermillPublisher(cfg.Events, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	invalidator, err := events.NewCacheInvalidator(publisher.Subscriber(), cacheManager, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize cache invalidator: %v", err)
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go func() {
		if err := invalidator.Run(runCtx); err != nil {
			logger.Error("Cache invalidator stopped", "error", err)
		}
	}()
	<-invalidator.Running()

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDeps{
		DB:        db,
		Repo:      repoManager.GetRepository(),
		Cache:     cacheManager,
		Publisher: publisher,
		Notifier:  notify.NewNotifier(cfg.Mail, slogLogger),
		Validator: validator,
		Logger:    slogLogger,
	}, services.ServiceManagerConfig{
		Series: services.SeriesOptions{
			BatchSize:  cfg.SeriesBatchSize,
			BatchPause: cfg.SeriesBatchPause,
		},
		Auth: services.AuthOptions{
			ResetTTL:     cfg.PasswordResetTTL,
			ResetBaseURL: cfg.Mail.FrontendBaseURL,
		},
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger, cfg.Session)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	handlers.SetupMiddleware(router, logger, cfg.Mail.FrontendBaseURL)

	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := invalidator.Close(); err != nil {
		logger.Error("Failed to stop cache invalidator", "error", err)
	}
	stopRun()

	// closes the event publisher
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// closes the database pool and redis
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
