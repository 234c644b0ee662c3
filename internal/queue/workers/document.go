package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/jmlee-dev/guidebot-backend/internal/document"
	"github.com/jmlee-dev/guidebot-backend/internal/ingest"
	"github.com/jmlee-dev/guidebot-backend/internal/queue"
)

// DocumentWorker runs the full ingestion pipeline for one registered
// document: load the stored file, extract pages, chunk, embed, index, and
// record the outcome on the registry row.
type DocumentWorker struct {
	docSvc   *document.Service
	pipeline *ingest.Pipeline
}

func NewDocumentWorker(docSvc *document.Service, pipeline *ingest.Pipeline) *DocumentWorker {
	return &DocumentWorker{docSvc: docSvc, pipeline: pipeline}
}

func (w *DocumentWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}

	slog.Info("ingesting document", "document_id", docID)

	if err := w.docSvc.MarkProcessing(ctx, docID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	doc, err := w.docSvc.GetByID(ctx, docID)
	if err != nil {
		return w.fail(ctx, docID, fmt.Errorf("get document: %w", err))
	}

	extracted, err := w.docSvc.Extract(ctx, doc)
	if err != nil {
		return w.fail(ctx, docID, fmt.Errorf("extract text: %w", err))
	}

	stats, err := w.pipeline.Run(ctx, extracted, doc.Title)
	if err != nil {
		// An empty document is a terminal failure; retrying cannot help.
		if errors.Is(err, ingest.ErrEmptyDocument) {
			w.recordFailure(ctx, docID, err)
			return nil
		}
		return w.fail(ctx, docID, fmt.Errorf("run pipeline: %w", err))
	}

	if err := w.docSvc.MarkReady(ctx, docID, stats.Chunks, stats.Strategy); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}

	slog.Info("document ingested",
		"document_id", docID,
		"chunks", stats.Chunks,
		"strategy", stats.Strategy,
	)
	return nil
}

// fail records the failure and returns the error so asynq retries.
func (w *DocumentWorker) fail(ctx context.Context, docID uuid.UUID, err error) error {
	w.recordFailure(ctx, docID, err)
	return err
}

func (w *DocumentWorker) recordFailure(ctx context.Context, docID uuid.UUID, cause error) {
	if markErr := w.docSvc.MarkFailed(ctx, docID, cause.Error()); markErr != nil {
		slog.Error("mark document failed", "document_id", docID, "error", markErr)
	}
}
