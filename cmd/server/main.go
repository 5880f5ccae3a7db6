// Command server runs the job lifecycle API: HTTP surface, background
// execution workers, and the WebSocket notification gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxworks/studio-api/internal/bus"
	"github.com/voxworks/studio-api/internal/config"
	"github.com/voxworks/studio-api/internal/dispatch"
	"github.com/voxworks/studio-api/internal/executor"
	"github.com/voxworks/studio-api/internal/gateway"
	"github.com/voxworks/studio-api/internal/platform/logger"
	"github.com/voxworks/studio-api/internal/platform/postgres"
	"github.com/voxworks/studio-api/internal/service/auth"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"executor_workers", cfg.Executor.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := runMigrations(db, log); err != nil {
		return err
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	// Core components
	jobStore := postgres.NewPostgresJobStore(db)
	userStore := postgres.NewPostgresUserStore(db)
	notifyBus := bus.NewInMemoryBus(log)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("set up jwt service: %w", err)
	}

	registry := executor.NewDefaultRegistry(time.Duration(cfg.Executor.CheckpointDelayMs) * time.Millisecond)
	exec := executor.New(jobStore, notifyBus, registry, executor.Config{
		MaxAttempts: cfg.Executor.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Executor.RetryDelaySeconds) * time.Second,
	}, log)

	dispatcher := dispatch.NewRedisDispatcher(redisClient, cfg.Redis.QueueKey, log)
	consumer := dispatch.NewConsumer(redisClient, cfg.Redis.QueueKey, exec, dispatch.ConsumerConfig{
		WorkerCount: cfg.Executor.WorkerCount,
	}, log)
	consumer.Start(ctx)

	gw := gateway.New(notifyBus, jwtService, gateway.DefaultConfig(), log)

	router := buildRouter(routerDeps{
		jobStore:   jobStore,
		userStore:  userStore,
		dispatcher: dispatcher,
		controller: exec,
		jwtService: jwtService,
		gateway:    gw,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}

	// Workers observe the cancelled root context; wait for in-flight jobs to
	// reach a checkpoint and stop.
	consumer.Wait()

	log.Info("shutdown complete")
	return nil
}
