package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmlee-dev/guidebot-backend/internal/models"
	"github.com/jmlee-dev/guidebot-backend/internal/storage"
	"github.com/jmlee-dev/guidebot-backend/pkg/langdetect"
	"github.com/jmlee-dev/guidebot-backend/pkg/textextract"
)

// ErrNotFound marks a missing document id.
var ErrNotFound = errors.New("document not found")

const docColumns = `id, title, file_path, file_type, file_size_bytes, language, status, chunk_count, strategy, error, metadata, created_at, updated_at`

// Service is the document registry: it stores uploaded source files and
// tracks their ingestion lifecycle in Postgres.
type Service struct {
	db      *pgxpool.Pool
	storage storage.Storage
}

func NewService(db *pgxpool.Pool, store storage.Storage) *Service {
	return &Service{db: db, storage: store}
}

type UploadRequest struct {
	Title    string
	FileName string
	FileType string
	FileSize int64
	Data     io.Reader
	Metadata map[string]interface{}
}

func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	fileType := strings.ToLower(req.FileType)
	if !supportedType(fileType) {
		return nil, fmt.Errorf("unsupported file type %s, want one of %s",
			fileType, strings.Join(textextract.SupportedTypes(), ", "))
	}

	docID := uuid.New()
	path := fmt.Sprintf("%s/%s%s", time.Now().Format("20060102"), docID, fileType)

	if err := s.storage.Save(ctx, path, req.Data); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	language := langdetect.DetectFromFilename(req.FileName)
	if language == langdetect.Unknown {
		language = ""
	}

	metadata, _ := json.Marshal(req.Metadata)

	var doc models.Document
	err := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, title, file_path, file_type, file_size_bytes, language, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+docColumns,
		docID, req.Title, path, fileType, req.FileSize, language, models.DocStatusPending, metadata,
	).Scan(scanTargets(&doc)...)
	if err != nil {
		_ = s.storage.Delete(ctx, path)
		return nil, fmt.Errorf("insert document: %w", err)
	}

	return &doc, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id = $1`, id,
	).Scan(scanTargets(&doc)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+docColumns+` FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(scanTargets(&d)...); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if doc.FilePath != "" {
		_ = s.storage.Delete(ctx, doc.FilePath)
	}

	_, err = s.db.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	return err
}

func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, models.DocStatusProcessing, "", 0, "")
}

func (s *Service) MarkReady(ctx context.Context, id uuid.UUID, chunkCount int, strategy string) error {
	return s.setStatus(ctx, id, models.DocStatusReady, "", chunkCount, strategy)
}

func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return s.setStatus(ctx, id, models.DocStatusFailed, cause, 0, "")
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status, cause string, chunkCount int, strategy string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, error = $2, chunk_count = $3, strategy = $4, updated_at = now()
		 WHERE id = $5`,
		status, cause, chunkCount, strategy, id,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Extract loads the stored file and produces its per-page text. This is the
// page text provider for the ingestion worker.
func (s *Service) Extract(ctx context.Context, doc *models.Document) (*textextract.Document, error) {
	f, err := s.storage.Open(ctx, doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}

	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), doc.FileType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	extracted.Info.FileName = doc.Title
	return extracted, nil
}

func supportedType(fileType string) bool {
	for _, t := range textextract.SupportedTypes() {
		if t == fileType {
			return true
		}
	}
	return false
}

func scanTargets(d *models.Document) []interface{} {
	return []interface{}{
		&d.ID, &d.Title, &d.FilePath, &d.FileType, &d.FileSizeBytes,
		&d.Language, &d.Status, &d.ChunkCount, &d.Strategy, &d.Error,
		&d.Metadata, &d.CreatedAt, &d.UpdatedAt,
	}
}
