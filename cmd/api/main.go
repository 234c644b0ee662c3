package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/jmlee-dev/guidebot-backend/internal/api"
	"github.com/jmlee-dev/guidebot-backend/internal/config"
	"github.com/jmlee-dev/guidebot-backend/internal/database"
	"github.com/jmlee-dev/guidebot-backend/internal/document"
	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/queue"
	"github.com/jmlee-dev/guidebot-backend/internal/rag"
	"github.com/jmlee-dev/guidebot-backend/internal/search"
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

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable at startup", "error", err)
	}
	defer rdb.Close()

	guidebookStore, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Addr:       cfg.QdrantAddr(),
		Collection: cfg.Qdrant.GuidebookCollection,
		Dimension:  cfg.Qdrant.Dimension,
	})
	if err != nil {
		slog.Error("qdrant client", "error", err)
		os.Exit(1)
	}
	benefitsStore, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Addr:       cfg.QdrantAddr(),
		Collection: cfg.Qdrant.BenefitsCollection,
		Dimension:  cfg.Qdrant.Dimension,
	})
	if err != nil {
		slog.Error("qdrant client", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		slog.Error("storage", "error", err)
		os.Exit(1)
	}

	gw := llm.NewGateway(cfg.LLM)
	embedder := embedding.NewService(gw, cfg.LLM.EmbeddingModel, cfg.Qdrant.Dimension)

	var translator search.Translator
	if cfg.Search.MTEnabled {
		translator, err = search.NewCachedTranslator(
			search.NewLLMTranslator(gw, cfg.LLM.DefaultModel),
			cfg.Search.TranslateCacheSize,
		)
		if err != nil {
			slog.Error("translator", "error", err)
			os.Exit(1)
		}
	}

	docSvc := document.NewService(db, store)
	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	chatbot := rag.NewChatbot(rag.NewRetriever(guidebookStore, embedder), gw, cfg.Search.TopK)
	benefitsSvc := search.NewBenefitsService(
		benefitsStore,
		embedder,
		search.Weights{Alpha: cfg.Search.Alpha, Beta: cfg.Search.Beta, Gamma: cfg.Search.Gamma},
		cfg.Search.CandidateK,
		translator,
	)

	// The translate endpoint always needs a translator even when ranked
	// search runs without MT fallback.
	apiTranslator := translator
	if apiTranslator == nil {
		apiTranslator = search.NewLLMTranslator(gw, cfg.LLM.DefaultModel)
	}

	handler := api.NewRouter(api.Deps{
		DB:             db,
		Redis:          rdb,
		Cfg:            cfg,
		DocSvc:         docSvc,
		QueueClient:    queueClient,
		Chatbot:        chatbot,
		BenefitsSvc:    benefitsSvc,
		Translator:     apiTranslator,
		GuidebookStore: guidebookStore,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
