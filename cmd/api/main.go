package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/desp-aas/project-management/internal/api"
	"github.com/desp-aas/project-management/internal/api/handlers"
	"github.com/desp-aas/project-management/internal/app"
	"github.com/desp-aas/project-management/internal/queue/tasks"
	"github.com/desp-aas/project-management/pkg/config"
	"github.com/desp-aas/project-management/pkg/database"
	"github.com/desp-aas/project-management/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.InitWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting project management service",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("repository_provider", cfg.RepositoryProvider),
		zap.String("deletion_executor", cfg.Deletion.Executor),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.AppEnv != "production")
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backs notifications and, when configured, queued deletions.
	var opts app.Options
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		opts.Notifier = tasks.NewQueueNotifier(client)
		if cfg.Deletion.Executor == "queue" {
			// the task must outlive the whole server wait
			opts.DeletionScheduler = tasks.NewDeletionQueue(client, cfg.Deletion.Timeout+time.Minute)
		}
	}

	c, err := app.New(cfg, db, opts)
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	router := api.NewRouter(ctx, api.Dependencies{
		HMACSecret:       jwtSecret,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		Health:           handlers.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, db) }),
		Projects:         handlers.NewProjectsHandler(c.Projects, c.Deletions),
		BuildStatus:      handlers.NewBuildStatusHandler(c.Builds),
		Flavors:          handlers.NewCatalogHandler(c.Flavors),
		OperatingSystems: handlers.NewCatalogHandler(c.OperatingSystems),
		Repositories:     handlers.NewCatalogHandler(c.Repositories),
		Profiles:         handlers.NewCatalogHandler(c.Profiles),
		Applications:     handlers.NewApplicationsHandler(c.Applications),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "project-management"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}

	// Pending in-process deletions are aborted; their projects stay in place.
	if err := c.Supervisor.Shutdown(shutdownCtx); err != nil {
		log.Error("detached tasks did not drain", zap.Error(err))
	}
}
