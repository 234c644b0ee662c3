package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmlee-dev/guidebot-backend/internal/llm"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

// ErrEmptyQuery marks a blank question. Caller-correctable.
var ErrEmptyQuery = errors.New("question text is empty")

// noContextAnswer is returned when retrieval finds nothing relevant. It is
// a normal answer, not an error; an unreachable index is reported as an
// error instead.
const noContextAnswer = "죄송합니다. 질문과 관련된 정보를 찾을 수 없습니다."

type ChatRequest struct {
	Query    string `json:"query"`
	Lang     string `json:"lang"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type ChatResponse struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	Confidence float64  `json:"confidence"`
	// NoContext is set when retrieval returned zero hits and the answer is
	// the canned fallback rather than a grounded response.
	NoContext bool  `json:"no_context,omitempty"`
	LatencyMs int64 `json:"latency_ms"`
}

// Chatbot answers guidebook questions: language-filtered retrieval, numbered
// context assembly, then one chat completion grounded in that context.
type Chatbot struct {
	retriever *Retriever
	gateway   llm.Gateway
	topK      int
}

func NewChatbot(retriever *Retriever, gateway llm.Gateway, topK int) *Chatbot {
	if topK <= 0 {
		topK = 5
	}
	return &Chatbot{retriever: retriever, gateway: gateway, topK: topK}
}

func (c *Chatbot) Answer(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	lang := req.Lang
	if lang == "" {
		lang = "ko"
	}
	start := time.Now()

	hits, err := c.retriever.Retrieve(ctx, req.Query, lang, c.topK)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		slog.Info("no relevant chunks found", "lang", lang)
		return &ChatResponse{
			Answer:    noContextAnswer,
			NoContext: true,
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	}

	contextStr := buildContext(hits)

	resp, err := c.gateway.Chat(ctx, llm.ChatRequest{
		Provider: req.Provider,
		Model:    req.Model,
		Messages: []llm.Message{
			{Role: "system", Content: answerPrompt(lang)},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\nQuestion: %s", contextStr, req.Query)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	slog.Info("chat answered",
		"lang", lang,
		"chunks", len(hits),
		"tokens", resp.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &ChatResponse{
		Answer:     resp.Content,
		Sources:    extractSources(hits),
		Confidence: confidenceScore(hits),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func answerPrompt(lang string) string {
	return "You are a helpful assistant answering questions about guidebooks for foreign residents. " +
		"Answer strictly from the numbered context passages. " +
		"If the context does not contain the answer, say you do not know. " +
		"Respond in the language with code " + lang + "."
}

// buildContext renders hits as numbered passages with provenance headers:
// [i] file (pages a-b) - toc title.
func buildContext(hits []vectorstore.ScoredHit) string {
	var sb strings.Builder
	for i, h := range hits {
		header := fmt.Sprintf("[%d] %s", i+1, payloadString(h.Payload, "file_name"))
		if pages := pageRange(h.Payload); pages != "" {
			header += " (pages " + pages + ")"
		}
		if title := payloadString(h.Payload, "toc_title"); title != "" {
			header += " - " + title
		}
		sb.WriteString(header)
		sb.WriteString("\n")
		sb.WriteString(payloadString(h.Payload, "content"))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func extractSources(hits []vectorstore.ScoredHit) []string {
	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		entry := payloadString(h.Payload, "file_name")
		if pages := pageRange(h.Payload); pages != "" {
			entry += " (pages " + pages + ")"
		}
		if title := payloadString(h.Payload, "toc_title"); title != "" {
			entry += " - " + title
		}
		sources = append(sources, entry)
	}
	return sources
}

// confidenceScore is the mean similarity clamped to [0, 1].
func confidenceScore(hits []vectorstore.ScoredHit) float64 {
	if len(hits) == 0 {
		return 0
	}
	sum := 0.0
	for _, h := range hits {
		sum += float64(h.Score)
	}
	avg := sum / float64(len(hits))
	if avg < 0 {
		avg = 0
	}
	if avg > 1 {
		avg = 1
	}
	return avg
}

func pageRange(payload map[string]interface{}) string {
	start := payloadInt(payload, "start_page")
	end := payloadInt(payload, "end_page")
	if start == 0 && end == 0 {
		return ""
	}
	if start == end {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func payloadString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func payloadInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
