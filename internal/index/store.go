package index

import (
	"context"
	"errors"

	"site-rag/internal/models"
)

var ErrEmptyIndex = errors.New("index is empty, run ingest first")

// Store is a vector index of embedded chunks.
type Store interface {
	// Reset drops every record so the index can be rebuilt.
	Reset(ctx context.Context) error
	Add(ctx context.Context, records []models.ChunkEmbedding) error
	// Search returns at most k records ordered by decreasing similarity.
	// An empty store returns ErrEmptyIndex.
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
