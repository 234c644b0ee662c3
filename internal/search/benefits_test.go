package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

type fakeGateway struct{}

func (fakeGateway) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = make([]float32, 4)
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

func (fakeGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("none") }
func (fakeGateway) ListModels() []llm.ModelInfo           { return nil }

type fakeBenefitsStore struct {
	hits       []vectorstore.ScoredHit
	lastLimit  int
	lastFilter *vectorstore.SearchFilter
	searchErr  error
}

func (s *fakeBenefitsStore) EnsureCollection(context.Context, bool) error      { return nil }
func (s *fakeBenefitsStore) Upsert(context.Context, []vectorstore.Point) error { return nil }

func (s *fakeBenefitsStore) CollectionInfo(context.Context) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{}, nil
}

func (s *fakeBenefitsStore) Search(_ context.Context, _ []float32, limit int, filter *vectorstore.SearchFilter) ([]vectorstore.ScoredHit, error) {
	s.lastLimit = limit
	s.lastFilter = filter
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}

func benefitHits(n int) []vectorstore.ScoredHit {
	hits := make([]vectorstore.ScoredHit, n)
	for i := range hits {
		hits[i] = vectorstore.ScoredHit{
			ID:    fmt.Sprintf("prog-%02d", i+1),
			Score: float32(n-i) / float32(n),
			Payload: map[string]interface{}{
				"program_id": fmt.Sprintf("prog-%02d", i+1),
				"name_ko":    fmt.Sprintf("지원 프로그램 %d", i+1),
				"desc_ko":    "설명",
				"authority":  "서울시",
			},
		}
	}
	return hits
}

func newBenefitsService(store *fakeBenefitsStore) *BenefitsService {
	embedder := embedding.NewService(fakeGateway{}, "test-embed", 4)
	svc := NewBenefitsService(store, embedder, Weights{Alpha: 0.7, Beta: 0.2, Gamma: 0.1}, 30, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestBenefitsSearch(t *testing.T) {
	store := &fakeBenefitsStore{hits: benefitHits(25)}
	svc := newBenefitsService(store)

	resp, err := svc.Search(context.Background(), BenefitsRequest{
		Query:        "다문화 가정 지원",
		Visa:         "F-6",
		Jurisdiction: "seoul",
		Category:     "family",
		Page:         1,
		Size:         10,
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Total != 25 {
		t.Errorf("total = %d, want the full candidate count", resp.Total)
	}
	if resp.Page != 1 || resp.Size != 10 {
		t.Errorf("page/size echoed as %d/%d, want 1/10", resp.Page, resp.Size)
	}
	if len(resp.Items) != 10 {
		t.Fatalf("items = %d, want 10", len(resp.Items))
	}
	// Uniformly descending similarity: page 1 holds ranks 11 through 20.
	if resp.Items[0].ProgramID != "prog-11" || resp.Items[9].ProgramID != "prog-20" {
		t.Errorf("page spans %s..%s, want prog-11..prog-20",
			resp.Items[0].ProgramID, resp.Items[9].ProgramID)
	}
	if resp.Items[0].Name != "지원 프로그램 11" || resp.Items[0].Authority != "서울시" {
		t.Errorf("item fields = %+v", resp.Items[0])
	}

	if store.lastLimit != 30 {
		t.Errorf("candidate limit = %d, want the default 30", store.lastLimit)
	}
	f := store.lastFilter
	if f == nil || f.Visa != "F-6" || f.Jurisdiction != "seoul" || f.Category != "family" {
		t.Errorf("filter = %+v", f)
	}
	if f.Language != "" {
		t.Error("benefits filter must not constrain payload language")
	}
}

func TestBenefitsSearchFeaturedFirst(t *testing.T) {
	store := &fakeBenefitsStore{hits: []vectorstore.ScoredHit{
		{ID: "plain", Score: 0.60, Payload: map[string]interface{}{
			"program_id": "plain", "name_ko": "일반", "desc_ko": "d",
		}},
		{ID: "featured", Score: 0.55, Payload: map[string]interface{}{
			"program_id": "featured", "name_ko": "추천", "desc_ko": "d", "featured": true,
		}},
	}}
	svc := newBenefitsService(store)

	resp, err := svc.Search(context.Background(), BenefitsRequest{Query: "지원"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Items[0].ProgramID != "featured" || !resp.Items[0].Featured {
		t.Errorf("first item = %+v, want the featured program", resp.Items[0])
	}
	if resp.Items[0].Score <= resp.Items[1].Score {
		t.Error("items must be ordered by fused score descending")
	}
}

func TestBenefitsSearchDefaults(t *testing.T) {
	store := &fakeBenefitsStore{hits: benefitHits(3)}
	svc := newBenefitsService(store)

	resp, err := svc.Search(context.Background(), BenefitsRequest{Query: "지원", Page: -2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Page != 0 || resp.Size != 10 {
		t.Errorf("defaults = page %d size %d, want 0/10", resp.Page, resp.Size)
	}
	if len(resp.Items) != 3 {
		t.Errorf("items = %d, want all 3", len(resp.Items))
	}
}

func TestBenefitsSearchProgramIDFallback(t *testing.T) {
	store := &fakeBenefitsStore{hits: []vectorstore.ScoredHit{
		{ID: "point-uuid", Score: 0.9, Payload: map[string]interface{}{
			"id": "legacy-7", "name_ko": "이름", "desc_ko": "d",
		}},
		{ID: "point-only", Score: 0.8, Payload: map[string]interface{}{
			"name_ko": "이름", "desc_ko": "d",
		}},
	}}
	svc := newBenefitsService(store)

	resp, err := svc.Search(context.Background(), BenefitsRequest{Query: "지원"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Items[0].ProgramID != "legacy-7" {
		t.Errorf("program id = %q, want the legacy payload id", resp.Items[0].ProgramID)
	}
	if resp.Items[1].ProgramID != "point-only" {
		t.Errorf("program id = %q, want the point id fallback", resp.Items[1].ProgramID)
	}
}

func TestBenefitsSearchEmptyQuery(t *testing.T) {
	svc := newBenefitsService(&fakeBenefitsStore{})
	if _, err := svc.Search(context.Background(), BenefitsRequest{Query: " \t "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestBenefitsSearchIndexUnavailable(t *testing.T) {
	svc := newBenefitsService(&fakeBenefitsStore{searchErr: vectorstore.ErrUnavailable})
	_, err := svc.Search(context.Background(), BenefitsRequest{Query: "지원"})
	if !errors.Is(err, vectorstore.ErrUnavailable) {
		t.Errorf("error = %v, want wrapped ErrUnavailable", err)
	}
}
