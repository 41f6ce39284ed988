package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"imageqa/internal/api"
	"imageqa/internal/config"
	"imageqa/internal/redis"
	"imageqa/internal/service/ai"
	"imageqa/internal/service/assistant"
	"imageqa/internal/service/fetcher"
	"imageqa/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("IMAGEQA_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err,
			"path", cfgPath)
		os.Exit(1)
	}

	var locker storage.Locker
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create redis client",
				"error", err,
				"host", cfg.Redis.Host,
				"port", cfg.Redis.Port)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = redis.NewLocker(rdb, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second)
		log.InfoContext(ctx, "Redis storage lock is enabled",
			"host", cfg.Redis.Host,
			"port", cfg.Redis.Port)
	}

	store, err := storage.NewStore(cfg.BasicConfig.SaveDir, cfg.BasicConfig.Naming, locker)
	if err != nil {
		log.ErrorContext(ctx, "Failed to prepare save directory",
			"error", err,
			"saveDir", cfg.BasicConfig.SaveDir)
		os.Exit(1)
	}

	// loaded once and shared by every request
	model, err := ai.New(ctx, cfg.Model)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize model",
			"error", err,
			"provider", cfg.Model.Provider,
			"model", cfg.Model.Name)
		os.Exit(1)
	}
	log.InfoContext(ctx, "Model is initialized",
		"model", model.Name())

	assistantService, err := assistant.NewService(store, fetcher.New(nil), model, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize assistant",
			"error", err)
		os.Exit(1)
	}

	router := gin.Default()
	api.NewHandler(assistantService, store.Dir(), log).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.BasicConfig.ServerAddress,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server stopped",
				"error", err)
			stop()
		}
	}()
	log.InfoContext(ctx, "Server is started",
		"addr", cfg.BasicConfig.ServerAddress,
		"saveDir", store.Dir(),
		"naming", cfg.BasicConfig.Naming)

	<-ctx.Done()
	log.InfoContext(context.Background(), "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down server",
			"error", err)
	}
}
