package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jmlee-dev/guidebot-backend/internal/config"
	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/ingest"
	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
	"github.com/jmlee-dev/guidebot-backend/pkg/textextract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	var (
		dir      = flag.String("dir", "", "guidebook directory to ingest (defaults to GUIDEBOOK_DIR)")
		recreate = flag.Bool("recreate", false, "destroy and recreate the collection before ingesting; requires exclusive access to the index")
		strategy = flag.String("strategy", "", "chunking strategy override: auto, toc, semantic or fixed")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *strategy != "" {
		cfg.Chunking.Strategy = *strategy
	}
	if err := cfg.ChunkerOptions().Validate(); err != nil {
		slog.Error("invalid chunking config", "error", err)
		os.Exit(1)
	}

	root := *dir
	if root == "" {
		root = cfg.Storage.GuidebookDir
	}

	ctx := context.Background()

	store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Addr:       cfg.QdrantAddr(),
		Collection: cfg.Qdrant.GuidebookCollection,
		Dimension:  cfg.Qdrant.Dimension,
	})
	if err != nil {
		slog.Error("qdrant client", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureCollection(ctx, *recreate); err != nil {
		slog.Error("ensure collection", "error", err)
		os.Exit(1)
	}

	gw := llm.NewGateway(cfg.LLM)
	embedder := embedding.NewService(gw, cfg.LLM.EmbeddingModel, cfg.Qdrant.Dimension)

	pipeline, err := ingest.NewPipeline(embedder, store, cfg.ChunkerOptions(), cfg.Chunking.Strategy)
	if err != nil {
		slog.Error("pipeline", "error", err)
		os.Exit(1)
	}

	files, err := collectFiles(root)
	if err != nil {
		slog.Error("scan guidebook directory", "dir", root, "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		slog.Warn("no ingestable files found", "dir", root)
		return
	}

	var totalChunks, failed int
	for _, path := range files {
		stats, err := ingestFile(ctx, pipeline, path)
		if err != nil {
			if errors.Is(err, ingest.ErrEmptyDocument) {
				slog.Warn("skipping empty document", "file", path)
			} else {
				slog.Error("ingest failed", "file", path, "error", err)
				failed++
			}
			continue
		}
		totalChunks += stats.Chunks
	}

	info, err := store.CollectionInfo(ctx)
	if err != nil {
		slog.Warn("collection info", "error", err)
	} else {
		slog.Info("collection state", "points", info.PointCount, "status", info.Status)
	}

	slog.Info("ingestion run complete",
		"files", len(files),
		"failed", failed,
		"chunks", totalChunks,
	)
	if failed > 0 {
		os.Exit(1)
	}
}

func ingestFile(ctx context.Context, pipeline *ingest.Pipeline, path string) (*ingest.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	doc, err := textextract.Extract(f, fi.Size(), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	doc.Info.FileName = filepath.Base(path)

	return pipeline.Run(ctx, doc, filepath.Base(path))
}

func collectFiles(root string) ([]string, error) {
	supported := make(map[string]bool)
	for _, t := range textextract.SupportedTypes() {
		supported[t] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supported[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
