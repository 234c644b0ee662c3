package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

type fakeGateway struct {
	lastChat llm.ChatRequest
	answer   string
	chatErr  error
}

func (f *fakeGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastChat = req
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResponse{Content: f.answer, TotalTokens: 42}, nil
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = make([]float32, 4)
	}
	return &llm.EmbeddingResponse{Embeddings: out}, nil
}

func (f *fakeGateway) Provider(string) (llm.Provider, error) { return nil, errors.New("none") }
func (f *fakeGateway) ListModels() []llm.ModelInfo           { return nil }

type fakeStore struct {
	hits       []vectorstore.ScoredHit
	lastFilter *vectorstore.SearchFilter
	searchErr  error
}

func (s *fakeStore) EnsureCollection(context.Context, bool) error      { return nil }
func (s *fakeStore) Upsert(context.Context, []vectorstore.Point) error { return nil }

func (s *fakeStore) CollectionInfo(context.Context) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{}, nil
}

func (s *fakeStore) Search(_ context.Context, _ []float32, _ int, filter *vectorstore.SearchFilter) ([]vectorstore.ScoredHit, error) {
	s.lastFilter = filter
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}

func guidebookHits() []vectorstore.ScoredHit {
	return []vectorstore.ScoredHit{
		{ID: "1", Score: 0.8, Payload: map[string]interface{}{
			"file_name":  "guide_ko.pdf",
			"content":    "외국인등록은 입국 후 90일 이내에 신청합니다.",
			"start_page": 3, "end_page": 4,
			"toc_title": "외국인등록",
		}},
		{ID: "2", Score: 0.6, Payload: map[string]interface{}{
			"file_name":  "guide_ko.pdf",
			"content":    "체류지 변경은 14일 이내에 신고합니다.",
			"start_page": 7, "end_page": 7,
		}},
	}
}

func newTestChatbot(store *fakeStore, gw *fakeGateway) *Chatbot {
	embedder := embedding.NewService(gw, "test-embed", 4)
	return NewChatbot(NewRetriever(store, embedder), gw, 5)
}

func TestAnswerGrounded(t *testing.T) {
	store := &fakeStore{hits: guidebookHits()}
	gw := &fakeGateway{answer: "입국 후 90일 이내에 신청하세요."}
	bot := newTestChatbot(store, gw)

	resp, err := bot.Answer(context.Background(), ChatRequest{Query: "외국인등록은 언제 하나요?", Lang: "ko"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "입국 후 90일 이내에 신청하세요." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.NoContext {
		t.Error("grounded answer must not be flagged no-context")
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("sources = %v, want 2 entries", resp.Sources)
	}
	if resp.Sources[0] != "guide_ko.pdf (pages 3-4) - 외국인등록" {
		t.Errorf("source[0] = %q", resp.Sources[0])
	}
	if resp.Sources[1] != "guide_ko.pdf (pages 7)" {
		t.Errorf("source[1] = %q", resp.Sources[1])
	}
	if want := 0.7; math.Abs(resp.Confidence-want) > 1e-6 {
		t.Errorf("confidence = %v, want mean similarity %v", resp.Confidence, want)
	}
	if store.lastFilter == nil || store.lastFilter.Language != "ko" {
		t.Errorf("retrieval filter = %+v, want language ko", store.lastFilter)
	}

	// The user message carries the numbered context ahead of the question.
	user := gw.lastChat.Messages[len(gw.lastChat.Messages)-1].Content
	if !strings.Contains(user, "[1] guide_ko.pdf (pages 3-4) - 외국인등록\n") ||
		!strings.Contains(user, "[2] guide_ko.pdf (pages 7)\n") {
		t.Errorf("context headers missing from prompt:\n%s", user)
	}
	if !strings.Contains(user, "Question: 외국인등록은 언제 하나요?") {
		t.Error("question missing from prompt")
	}
}

func TestAnswerNoContext(t *testing.T) {
	store := &fakeStore{}
	gw := &fakeGateway{answer: "should not be called"}
	bot := newTestChatbot(store, gw)

	resp, err := bot.Answer(context.Background(), ChatRequest{Query: "화성 이주 지원금 있나요?"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.NoContext {
		t.Error("zero hits must set the no-context flag")
	}
	if resp.Answer != noContextAnswer {
		t.Errorf("answer = %q, want the canned fallback", resp.Answer)
	}
	if resp.Confidence != 0 || len(resp.Sources) != 0 {
		t.Error("no-context response must carry no sources or confidence")
	}
	if gw.lastChat.Messages != nil {
		t.Error("no completion must run without context")
	}
}

func TestAnswerEmptyQuery(t *testing.T) {
	bot := newTestChatbot(&fakeStore{}, &fakeGateway{})
	if _, err := bot.Answer(context.Background(), ChatRequest{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestAnswerIndexUnavailable(t *testing.T) {
	store := &fakeStore{searchErr: vectorstore.ErrUnavailable}
	bot := newTestChatbot(store, &fakeGateway{})
	_, err := bot.Answer(context.Background(), ChatRequest{Query: "질문"})
	if !errors.Is(err, vectorstore.ErrUnavailable) {
		t.Errorf("error = %v, want wrapped ErrUnavailable", err)
	}
}

func TestConfidenceScoreClamps(t *testing.T) {
	over := []vectorstore.ScoredHit{{Score: 1.4}, {Score: 1.2}}
	if got := confidenceScore(over); got != 1 {
		t.Errorf("confidence = %v, want clamp to 1", got)
	}
	under := []vectorstore.ScoredHit{{Score: -0.5}}
	if got := confidenceScore(under); got != 0 {
		t.Errorf("confidence = %v, want clamp to 0", got)
	}
	if got := confidenceScore(nil); got != 0 {
		t.Errorf("confidence of no hits = %v, want 0", got)
	}
}

func TestPageRange(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		want    string
	}{
		{"span", map[string]interface{}{"start_page": 3, "end_page": 5}, "3-5"},
		{"single", map[string]interface{}{"start_page": 7, "end_page": 7}, "7"},
		{"int64 from index", map[string]interface{}{"start_page": int64(2), "end_page": int64(2)}, "2"},
		{"absent", map[string]interface{}{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageRange(tt.payload); got != tt.want {
				t.Errorf("pageRange = %q, want %q", got, tt.want)
			}
		})
	}
}
