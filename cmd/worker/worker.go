package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"georag/internal/builder"
	"georag/internal/config"
	"georag/internal/embedding"
	"georag/internal/jobs"
	"georag/internal/logger"
	"georag/internal/storage"
	"georag/internal/storage/memory"
	"georag/internal/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

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
		})
	} else {
		embedder = embedding.NewMockEmbedder(cfg.EmbedderDimension)
	}

	idxBuilder := builder.New(store, embedder, cfg)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisURL}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("build task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := jobs.NewProcessor(idxBuilder)

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TaskBuildIndex, processor.HandleBuildIndex)

	logger.Info("starting index build worker", "redis", redisOpt.Addr)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
