package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/desp-aas/project-management/pkg/config"
	"github.com/desp-aas/project-management/pkg/database"
	"github.com/desp-aas/project-management/pkg/logger"

	"github.com/desp-aas/project-management/internal/app"
	"github.com/desp-aas/project-management/internal/queue/tasks"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.InitWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required by the worker")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			tasks.QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.L().Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	// Initialize DB and services for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.AppEnv != "production")
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	c, err := app.New(cfg, db, app.Options{Notifier: tasks.NewQueueNotifier(client)})
	if err != nil {
		logger.L().Fatal("failed to build services", zap.Error(err))
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeProjectDelete, tasks.NewDeletionTaskHandler(c.Deletions).HandleProjectDelete)

	logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
	if err := srv.Start(mux); err != nil {
		logger.L().Fatal("worker failed to start", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))

	// Shutdown waits for in-flight tasks up to asynq's shutdown timeout, then cancels their context.
	srv.Shutdown()
	_ = c.Supervisor.Shutdown(context.Background())
}
