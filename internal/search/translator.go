package search

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmlee-dev/guidebot-backend/internal/llm"
)

// Translator renders text into a target language. Implementations must be
// safe for concurrent use; ranking requests share one instance.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

var languageNames = map[string]string{
	"ko": "Korean",
	"en": "English",
	"ja": "Japanese",
	"zh": "Chinese",
	"th": "Thai",
	"vi": "Vietnamese",
	"uz": "Uzbek",
}

// LLMTranslator performs machine translation through the chat gateway.
type LLMTranslator struct {
	gateway llm.Gateway
	model   string
}

func NewLLMTranslator(gw llm.Gateway, model string) *LLMTranslator {
	return &LLMTranslator{gateway: gw, model: model}
}

func (t *LLMTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	target, ok := languageNames[targetLang]
	if !ok {
		return "", fmt.Errorf("unsupported target language: %s", targetLang)
	}

	resp, err := t.gateway.Chat(ctx, llm.ChatRequest{
		Model: t.model,
		Messages: []llm.Message{
			{Role: "system", Content: "You are a professional translator. Translate the user's text into " + target + ". Output only the translation, nothing else."},
			{Role: "user", Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", targetLang, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// CachedTranslator memoizes translations in a bounded LRU keyed by
// (text, target language). The cache is shared across requests and safe for
// concurrent use.
type CachedTranslator struct {
	inner Translator
	cache *lru.Cache[string, string]
}

func NewCachedTranslator(inner Translator, maxEntries int) (*CachedTranslator, error) {
	cache, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("translation cache: %w", err)
	}
	return &CachedTranslator{inner: inner, cache: cache}, nil
}

func (t *CachedTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	key := targetLang + "\x00" + text
	if cached, ok := t.cache.Get(key); ok {
		return cached, nil
	}
	translated, err := t.inner.Translate(ctx, text, targetLang)
	if err != nil {
		return "", err
	}
	t.cache.Add(key, translated)
	return translated, nil
}
