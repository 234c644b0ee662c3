package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
	"github.com/jmlee-dev/guidebot-backend/pkg/chunker"
	"github.com/jmlee-dev/guidebot-backend/pkg/textextract"
)

// fakeGateway answers embedding requests with constant vectors.
type fakeGateway struct {
	dimension int
	embedErr  error
}

func (f *fakeGateway) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = make([]float32, f.dimension)
	}
	return &llm.EmbeddingResponse{Model: req.Model, Embeddings: out}, nil
}

func (f *fakeGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("none") }
func (f *fakeGateway) ListModels() []llm.ModelInfo           { return nil }

// fakeStore records upserted points keyed by id, mirroring index idempotency.
type fakeStore struct {
	points    map[string]vectorstore.Point
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]vectorstore.Point)}
}

func (s *fakeStore) EnsureCollection(context.Context, bool) error { return nil }

func (s *fakeStore) Upsert(_ context.Context, points []vectorstore.Point) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *fakeStore) Search(context.Context, []float32, int, *vectorstore.SearchFilter) ([]vectorstore.ScoredHit, error) {
	return nil, nil
}

func (s *fakeStore) CollectionInfo(context.Context) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{PointCount: uint64(len(s.points))}, nil
}

func testPipeline(t *testing.T, store vectorstore.Store, strategy string) *Pipeline {
	t.Helper()
	embedder := embedding.NewService(&fakeGateway{dimension: 8}, "test-embed", 8)
	p, err := NewPipeline(embedder, store, chunker.Options{ChunkSize: 200, ChunkOverlap: 40}, strategy)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestPipelineRunAutoPicksTOC(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, "auto")

	doc := &textextract.Document{
		Pages: []string{
			"1. Intro\nwelcome to the guide",
			"2. Setup\ninstall the tools",
		},
		Info: textextract.DocumentInfo{PageCount: 2},
	}

	stats, err := p.Run(context.Background(), doc, "guide.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Strategy != "toc" {
		t.Errorf("strategy = %q, want toc when headings exist", stats.Strategy)
	}
	if stats.TOCEntries != 2 || stats.Chunks != 2 || stats.Pages != 2 {
		t.Errorf("stats = %+v, want 2 entries, 2 chunks, 2 pages", stats)
	}
	if len(store.points) != stats.Chunks {
		t.Errorf("indexed %d points, want %d", len(store.points), stats.Chunks)
	}
	for id, pt := range store.points {
		if len(pt.Vector) != 8 {
			t.Errorf("point %s vector length %d, want 8", id, len(pt.Vector))
		}
		if pt.Payload["chunk_type"] != "table_of_contents" {
			t.Errorf("point %s chunk_type = %v", id, pt.Payload["chunk_type"])
		}
	}
}

func TestPipelineRunAutoFallsBackToSemantic(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, "auto")

	doc := &textextract.Document{Pages: []string{"plain text\n\nno headings at all"}}
	stats, err := p.Run(context.Background(), doc, "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Strategy != "semantic" {
		t.Errorf("strategy = %q, want semantic without headings", stats.Strategy)
	}
}

func TestPipelineRunReingestIsIdempotent(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, "fixed")

	doc := &textextract.Document{Pages: []string{"the same document text, twice over."}}
	if _, err := p.Run(context.Background(), doc, "guide.pdf"); err != nil {
		t.Fatal(err)
	}
	first := len(store.points)

	if _, err := p.Run(context.Background(), doc, "guide.pdf"); err != nil {
		t.Fatal(err)
	}
	if len(store.points) != first {
		t.Errorf("re-ingest grew the index from %d to %d points", first, len(store.points))
	}
}

func TestPipelineRunEmptyDocument(t *testing.T) {
	p := testPipeline(t, newFakeStore(), "auto")

	_, err := p.Run(context.Background(), &textextract.Document{Pages: []string{"", "   \n  "}}, "blank.pdf")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("error = %v, want ErrEmptyDocument", err)
	}
}

func TestPipelineRunPropagatesUpsertFailure(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = vectorstore.ErrUnavailable
	p := testPipeline(t, store, "auto")

	_, err := p.Run(context.Background(), &textextract.Document{Pages: []string{"some text"}}, "guide.pdf")
	if !errors.Is(err, vectorstore.ErrUnavailable) {
		t.Errorf("error = %v, want wrapped index failure", err)
	}
}

func TestNewPipelineRejectsBadOptions(t *testing.T) {
	embedder := embedding.NewService(&fakeGateway{dimension: 8}, "test-embed", 8)
	if _, err := NewPipeline(embedder, newFakeStore(), chunker.Options{ChunkSize: 0}, "auto"); err == nil {
		t.Error("expected invalid chunk options to be rejected")
	}
}
