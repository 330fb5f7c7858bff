package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"site-rag/internal/index"
	"site-rag/internal/models"
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	embedder embeddings.Embedder
	store    index.Store
}

func NewRetriever(embedder embeddings.Embedder, store index.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.SearchResult, error) {
	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	results, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("question", question).Int("k", k).Int("results", len(results)).Msg("Retrieved chunks")
	return results, nil
}
