package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/jmlee-dev/guidebot-backend/internal/config"
	"github.com/jmlee-dev/guidebot-backend/internal/database"
	"github.com/jmlee-dev/guidebot-backend/internal/document"
	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/ingest"
	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/queue"
	"github.com/jmlee-dev/guidebot-backend/internal/queue/workers"
	"github.com/jmlee-dev/guidebot-backend/internal/storage"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		slog.Error("storage", "error", err)
		os.Exit(1)
	}

	guidebookStore, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Addr:       cfg.QdrantAddr(),
		Collection: cfg.Qdrant.GuidebookCollection,
		Dimension:  cfg.Qdrant.Dimension,
	})
	if err != nil {
		slog.Error("qdrant client", "error", err)
		os.Exit(1)
	}
	if err := guidebookStore.EnsureCollection(ctx, false); err != nil {
		slog.Error("ensure collection", "error", err)
		os.Exit(1)
	}

	gw := llm.NewGateway(cfg.LLM)
	embedder := embedding.NewService(gw, cfg.LLM.EmbeddingModel, cfg.Qdrant.Dimension)

	pipeline, err := ingest.NewPipeline(embedder, guidebookStore, cfg.ChunkerOptions(), cfg.Chunking.Strategy)
	if err != nil {
		slog.Error("pipeline", "error", err)
		os.Exit(1)
	}

	docSvc := document.NewService(db, store)
	docWorker := workers.NewDocumentWorker(docSvc, pipeline)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	registry := queue.NewRegistry()
	registry.HandleFunc(queue.TypeDocumentIngest, docWorker.ProcessTask)

	slog.Info("starting ingestion worker", "concurrency", 5)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
