package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmlee-dev/guidebot-backend/internal/config"
)

// gateway routes chat and embedding calls to a configured provider, retrying
// transient failures with quadratic backoff and falling back to a secondary
// provider when the primary is exhausted.
type gateway struct {
	registry map[string]Provider
	primary  string
	fallback string
	retries  int
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		registry: make(map[string]Provider),
		primary:  cfg.DefaultProvider,
		fallback: cfg.FallbackProvider,
		retries:  cfg.MaxRetries,
	}
	if cfg.OpenAIKey != "" {
		g.registry["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.registry["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		g.registry["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	if p, ok := g.registry[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("provider %q not configured", name)
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	name := req.Provider
	if name == "" {
		name = g.primary
	}

	resp, err := g.chatWithRetry(ctx, name, req)
	if err == nil || g.fallback == "" || g.fallback == name {
		return resp, err
	}

	slog.Warn("chat provider exhausted, using fallback",
		"provider", name,
		"fallback", g.fallback,
		"error", err,
	)
	return g.chatWithRetry(ctx, g.fallback, req)
}

func (g *gateway) chatWithRetry(ctx context.Context, name string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(attempt)):
			}
			slog.Debug("retrying chat call", "provider", name, "attempt", attempt)
		}

		resp, callErr := p.ChatCompletion(ctx, req)
		if callErr == nil {
			return resp, nil
		}
		lastErr = callErr
	}
	return nil, fmt.Errorf("%s chat failed after %d attempts: %w", name, g.retries+1, lastErr)
}

// backoff grows quadratically: 500ms, 2s, 4.5s.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 500 * time.Millisecond
}

// Embed is not retried here; the embedding service batches large inputs and
// re-running a failed batch is the caller's decision.
func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	name := req.Provider
	if name == "" {
		name = g.primary
	}
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}
	return p.GenerateEmbedding(ctx, req)
}

func (g *gateway) ListModels() []ModelInfo {
	var out []ModelInfo
	for _, p := range g.registry {
		for _, m := range p.Models() {
			out = append(out, ModelInfo{Provider: p.Name(), Model: m, Type: "chat"})
		}
	}
	return out
}
