package ingest

import (
	"time"

	"github.com/jmlee-dev/guidebot-backend/pkg/chunker"
	"github.com/jmlee-dev/guidebot-backend/pkg/langdetect"
	"github.com/jmlee-dev/guidebot-backend/pkg/textextract"
	"github.com/jmlee-dev/guidebot-backend/pkg/tokenizer"
)

// Tagger turns chunks into index payloads: a per-chunk language tag, source
// file identity, creation timestamp and whatever document metadata the
// extractor produced. The language tag is best-effort and never fatal.
type Tagger struct {
	now func() time.Time
}

func NewTagger() *Tagger {
	return &Tagger{now: time.Now}
}

func (t *Tagger) Payload(c chunker.Chunk, fileName string, info textextract.DocumentInfo) map[string]interface{} {
	lang := langdetect.Detect(c.Content)
	if lang == langdetect.Unknown {
		// An empty-script chunk still gets a filter-friendly tag.
		if fromName := langdetect.DetectFromFilename(fileName); fromName != langdetect.Unknown {
			lang = fromName
		} else {
			lang = langdetect.Default
		}
	}

	payload := map[string]interface{}{
		"content":     c.Content,
		"chunk_type":  string(c.Type),
		"language":    lang,
		"file_name":   fileName,
		"source_file": fileName,
		"start_page":  c.StartPage,
		"end_page":    c.EndPage,
		"created_at":  t.now().UTC().Format(time.RFC3339),
		"token_count": tokenizer.EstimateTokens(c.Content),
	}

	if c.TOCTitle != "" {
		payload["toc_title"] = c.TOCTitle
		payload["toc_number"] = c.TOCNumber
		payload["toc_level"] = c.TOCLevel
	}
	if c.Type == chunker.TypeSemantic {
		payload["paragraph"] = c.Paragraph
		if c.SubIndex > 0 {
			payload["sub_index"] = c.SubIndex
		}
	}
	if c.Type == chunker.TypeFixed {
		payload["start_char"] = c.StartChar
		payload["end_char"] = c.EndChar
	}

	if info.Title != "" {
		payload["doc_title"] = info.Title
	}
	if info.Author != "" {
		payload["doc_author"] = info.Author
	}
	if info.PageCount > 0 {
		payload["page_count"] = info.PageCount
	}

	return payload
}
