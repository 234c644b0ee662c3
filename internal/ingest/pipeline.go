package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
	"github.com/jmlee-dev/guidebot-backend/pkg/chunker"
	"github.com/jmlee-dev/guidebot-backend/pkg/textextract"
)

// ErrEmptyDocument marks a source document with no extractable text.
// Caller-correctable, never retried.
var ErrEmptyDocument = errors.New("document has no extractable text")

// Stats summarizes one pipeline run.
type Stats struct {
	FileName   string `json:"file_name"`
	Pages      int    `json:"pages"`
	TOCEntries int    `json:"toc_entries"`
	Strategy   string `json:"strategy"`
	Chunks     int    `json:"chunks"`
	Tokens     int    `json:"tokens"`
}

// Pipeline runs one document end-to-end on the calling goroutine: extract
// pages, pick a chunking strategy, tag, embed and upsert. Runs over
// independent documents may execute concurrently; each run owns its values
// exclusively.
type Pipeline struct {
	embedder *embedding.Service
	store    vectorstore.Store
	tagger   *Tagger
	opts     chunker.Options
	strategy string
}

// NewPipeline wires a pipeline. Strategy is "auto", "toc", "semantic" or
// "fixed"; auto prefers TOC sections when headings are detected and falls
// back to paragraph chunking.
func NewPipeline(embedder *embedding.Service, store vectorstore.Store, opts chunker.Options, strategy string) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("chunk options: %w", err)
	}
	if strategy == "" {
		strategy = "auto"
	}
	return &Pipeline{
		embedder: embedder,
		store:    store,
		tagger:   NewTagger(),
		opts:     opts,
		strategy: strategy,
	}, nil
}

func (p *Pipeline) Run(ctx context.Context, doc *textextract.Document, fileName string) (*Stats, error) {
	if !hasText(doc.Pages) {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEmptyDocument)
	}

	entries := chunker.ExtractTOC(doc.Pages)
	chunks, strategy := p.chunk(doc.Pages, entries)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s produced no chunks: %w", fileName, ErrEmptyDocument)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	points := make([]vectorstore.Point, len(chunks))
	tokens := 0
	for i, c := range chunks {
		payload := p.tagger.Payload(c, fileName, doc.Info)
		if tc, ok := payload["token_count"].(int); ok {
			tokens += tc
		}
		points[i] = vectorstore.Point{
			ID:      ChunkID(fileName, c.Content),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := p.store.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	stats := &Stats{
		FileName:   fileName,
		Pages:      len(doc.Pages),
		TOCEntries: len(entries),
		Strategy:   strategy,
		Chunks:     len(chunks),
		Tokens:     tokens,
	}
	slog.Info("document ingested",
		"file", fileName,
		"pages", stats.Pages,
		"strategy", stats.Strategy,
		"chunks", stats.Chunks,
	)
	return stats, nil
}

func (p *Pipeline) chunk(pages []string, entries []chunker.TOCEntry) ([]chunker.Chunk, string) {
	switch p.strategy {
	case "toc":
		return chunker.ChunkByTOC(pages, entries, p.opts), "toc"
	case "semantic":
		return chunker.ChunkBySemantic(pages, p.opts), "semantic"
	case "fixed":
		return chunker.ChunkByFixedSize(pages, p.opts), "fixed"
	default:
		if len(entries) > 0 {
			return chunker.ChunkByTOC(pages, entries, p.opts), "toc"
		}
		return chunker.ChunkBySemantic(pages, p.opts), "semantic"
	}
}

// ChunkID derives the idempotency key for one chunk from its source file and
// content. Re-ingesting identical content updates the stored point instead
// of duplicating it.
func ChunkID(fileName, content string) string {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte(fileName+"\x00"+content)).String()
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}
