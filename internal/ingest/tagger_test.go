package ingest

import (
	"testing"
	"time"

	"github.com/jmlee-dev/guidebot-backend/pkg/chunker"
	"github.com/jmlee-dev/guidebot-backend/pkg/textextract"
)

func fixedTagger() *Tagger {
	return &Tagger{now: func() time.Time {
		return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	}}
}

func TestTaggerPayloadCommonFields(t *testing.T) {
	c := chunker.Chunk{
		Content:   "외국인등록은 입국 후 90일 이내에 해야 합니다.",
		Type:      chunker.TypeTOC,
		StartPage: 3,
		EndPage:   4,
		TOCNumber: "2.1",
		TOCTitle:  "외국인등록",
		TOCLevel:  2,
	}
	info := textextract.DocumentInfo{Title: "생활 가이드북", Author: "출입국청", PageCount: 120}

	payload := fixedTagger().Payload(c, "guide_ko.pdf", info)

	if payload["content"] != c.Content {
		t.Error("payload content mismatch")
	}
	if payload["chunk_type"] != "table_of_contents" {
		t.Errorf("chunk_type = %v, want plain string", payload["chunk_type"])
	}
	if payload["language"] != "ko" {
		t.Errorf("language = %v, want ko", payload["language"])
	}
	if payload["file_name"] != "guide_ko.pdf" || payload["source_file"] != "guide_ko.pdf" {
		t.Error("file identity fields mismatch")
	}
	if payload["start_page"] != 3 || payload["end_page"] != 4 {
		t.Errorf("page range %v-%v, want 3-4", payload["start_page"], payload["end_page"])
	}
	if payload["created_at"] != "2025-03-01T09:00:00Z" {
		t.Errorf("created_at = %v, want fixed UTC timestamp", payload["created_at"])
	}
	if tc, ok := payload["token_count"].(int); !ok || tc <= 0 {
		t.Errorf("token_count = %v, want positive int", payload["token_count"])
	}

	if payload["toc_title"] != "외국인등록" || payload["toc_number"] != "2.1" || payload["toc_level"] != 2 {
		t.Error("toc fields mismatch")
	}
	if payload["doc_title"] != "생활 가이드북" || payload["doc_author"] != "출입국청" || payload["page_count"] != 120 {
		t.Error("document metadata mismatch")
	}
}

func TestTaggerPayloadStrategyFields(t *testing.T) {
	tagger := fixedTagger()

	semantic := tagger.Payload(chunker.Chunk{
		Content: "a paragraph", Type: chunker.TypeSemantic, StartPage: 1, EndPage: 1,
		Paragraph: 2, SubIndex: 3,
	}, "doc.pdf", textextract.DocumentInfo{})
	if semantic["paragraph"] != 2 || semantic["sub_index"] != 3 {
		t.Errorf("semantic fields = %v/%v, want 2/3", semantic["paragraph"], semantic["sub_index"])
	}
	if _, ok := semantic["start_char"]; ok {
		t.Error("semantic payload must not carry fixed-size offsets")
	}

	unsplit := tagger.Payload(chunker.Chunk{
		Content: "short", Type: chunker.TypeSemantic, StartPage: 1, EndPage: 1, Paragraph: 1,
	}, "doc.pdf", textextract.DocumentInfo{})
	if _, ok := unsplit["sub_index"]; ok {
		t.Error("unsplit paragraph must not carry a sub index")
	}

	fixed := tagger.Payload(chunker.Chunk{
		Content: "a window", Type: chunker.TypeFixed, StartPage: 1, EndPage: 1,
		StartChar: 100, EndChar: 250,
	}, "doc.pdf", textextract.DocumentInfo{})
	if fixed["start_char"] != 100 || fixed["end_char"] != 250 {
		t.Errorf("fixed offsets = %v/%v, want 100/250", fixed["start_char"], fixed["end_char"])
	}
	if _, ok := fixed["toc_title"]; ok {
		t.Error("fixed payload must not carry toc fields")
	}
}

func TestTaggerLanguageFallback(t *testing.T) {
	tagger := fixedTagger()

	// Digits-only content cannot be script-detected; the filename marker wins.
	fromName := tagger.Payload(chunker.Chunk{
		Content: "2024 2025 2026", Type: chunker.TypeFixed, StartPage: 1, EndPage: 1,
	}, "guidebook_ja.pdf", textextract.DocumentInfo{})
	if fromName["language"] != "ja" {
		t.Errorf("language = %v, want filename marker ja", fromName["language"])
	}

	// No marker anywhere falls back to the default.
	fallback := tagger.Payload(chunker.Chunk{
		Content: "2024 2025 2026", Type: chunker.TypeFixed, StartPage: 1, EndPage: 1,
	}, "handbook.pdf", textextract.DocumentInfo{})
	if fallback["language"] != "en" {
		t.Errorf("language = %v, want default en", fallback["language"])
	}
}

func TestChunkID(t *testing.T) {
	a := ChunkID("guide.pdf", "some chunk text")
	b := ChunkID("guide.pdf", "some chunk text")
	if a != b {
		t.Error("identical file and content must produce the same id")
	}

	if ChunkID("guide.pdf", "other text") == a {
		t.Error("different content must produce a different id")
	}
	if ChunkID("other.pdf", "some chunk text") == a {
		t.Error("different file must produce a different id")
	}

	// The separator keeps (file, content) boundaries unambiguous.
	if ChunkID("ab", "c") == ChunkID("a", "bc") {
		t.Error("file/content boundary must be part of the identity")
	}

	if len(a) != 36 {
		t.Errorf("id %q is not a canonical uuid", a)
	}
}
