package queue

const (
	TypeDocumentIngest = "document:ingest"
)

type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
}
