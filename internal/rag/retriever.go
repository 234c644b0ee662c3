package rag

import (
	"context"
	"fmt"

	"github.com/jmlee-dev/guidebot-backend/internal/embedding"
	"github.com/jmlee-dev/guidebot-backend/internal/vectorstore"
)

// Retriever runs plain top-K retrieval over the guidebook collection with a
// language filter. Hits come back in the index's native similarity order;
// no re-fusion happens on this path.
type Retriever struct {
	store    vectorstore.Store
	embedder *embedding.Service
}

func NewRetriever(store vectorstore.Store, embedder *embedding.Service) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

func (r *Retriever) Retrieve(ctx context.Context, query, language string, topK int) ([]vectorstore.ScoredHit, error) {
	if topK <= 0 {
		topK = 5
	}

	queryVec, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := &vectorstore.SearchFilter{Language: language}
	hits, err := r.store.Search(ctx, queryVec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}
	return hits, nil
}
