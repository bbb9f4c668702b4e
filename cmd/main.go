package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"georag/internal/api"
	"georag/internal/builder"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/logger"
	"georag/internal/storage"
	"georag/internal/storage/memory"
	"georag/internal/storage/postgres"
	"georag/internal/telemetry"
	"georag/internal/workspace"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("georag-api")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
	}

	var store storage.Adapter
	if cfg.PostgresDSN != "" {
		pg, err := postgres.Open(cfg)
		if err != nil {
			log.Fatal("Failed to open postgres storage:", err)
		}
		store = pg
	} else {
		logger.Warn("GEORAG_POSTGRES_DSN not set, using the in-memory storage adapter")
		store = memory.New()
	}

	var embedder embedding.Embedder
	if cfg.EmbedderURL != "" {
		embedder = embedding.NewHTTPEmbedder(embedding.HTTPEmbedderConfig{
			Endpoint:         cfg.EmbedderURL,
			DefaultModel:     cfg.EmbedderModel,
			DefaultDimension: cfg.EmbedderDimension,
			PoolSize:         cfg.EmbedderPoolSize,
			IdleTimeout:      time.Duration(cfg.EmbedderIdleTimeoutSeconds) * time.Second,
			Metrics:          metrics,
		})
	} else {
		embedder = embedding.NewMockEmbedder(cfg.EmbedderDimension)
	}

	idxBuilder := builder.New(store, embedder, cfg)

	var queue *asynq.Client
	if cfg.RedisURL != "" {
		queue = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURL})
	}

	coordinator := workspace.New(store, embedder, idxBuilder, cfg, queue)
	defer func() {
		if err := coordinator.Drain(); err != nil {
			logger.Error("error draining coordinator resources", "error", err)
		}
	}()

	server := api.New(coordinator, metrics, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Handler(),
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
