package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is one registered source file in the ingestion registry. Status
// moves pending -> processing -> ready, or failed with Error set.
type Document struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	FilePath      string          `json:"file_path,omitempty" db:"file_path"`
	FileType      string          `json:"file_type,omitempty" db:"file_type"`
	FileSizeBytes int64           `json:"file_size_bytes,omitempty" db:"file_size_bytes"`
	Language      string          `json:"language,omitempty" db:"language"`
	Status        string          `json:"status" db:"status"`
	ChunkCount    int             `json:"chunk_count" db:"chunk_count"`
	Strategy      string          `json:"strategy,omitempty" db:"strategy"`
	Error         string          `json:"error,omitempty" db:"error"`
	Metadata      json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)
