package index

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/embeddings"

	"site-rag/internal/embedding"
	"site-rag/internal/models"
)

// Builder rebuilds a Store from scratch and records a manifest.
type Builder struct {
	Store        Store
	Embedder     embeddings.Embedder
	BatchSize    int
	ManifestPath string
	// Template carries the build settings copied into every manifest.
	Template Manifest
	// Progress receives the embedding progress bar. Nil disables it.
	Progress io.Writer
}

// Build embeds chunks in batches, then resets the store, adds them and
// writes the manifest. A failed embedding leaves the store and the manifest
// of the previous build as they were.
func (b *Builder) Build(ctx context.Context, chunks []models.Chunk) (*Manifest, error) {
	var progress func(int)
	if b.Progress != nil && len(chunks) > 0 {
		bar := progressbar.NewOptions(len(chunks),
			progressbar.OptionSetWriter(b.Progress),
			progressbar.OptionSetDescription("embedding chunks"),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(b.Progress) }),
		)
		progress = func(done int) { _ = bar.Set(done) }
	}

	records, err := embedding.EmbedChunks(ctx, b.Embedder, chunks, b.BatchSize, progress)
	if err != nil {
		return nil, err
	}

	if err := b.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset index: %w", err)
	}
	if len(records) > 0 {
		if err := b.Store.Add(ctx, records); err != nil {
			return nil, fmt.Errorf("failed to add chunks to index: %w", err)
		}
	}

	m := b.Template
	m.BuiltAt = time.Now().UTC()
	m.Chunks = len(chunks)
	m.Documents = documentEntries(chunks)
	if len(records) > 0 {
		m.Dimension = len(records[0].Embedding)
	}

	if b.ManifestPath != "" {
		if err := SaveManifest(b.ManifestPath, &m); err != nil {
			return nil, fmt.Errorf("failed to write manifest: %w", err)
		}
	}
	log.Info().Int("documents", len(m.Documents)).Int("chunks", m.Chunks).Msg("Index built")
	return &m, nil
}

// documentEntries groups chunks by source in first-seen order.
func documentEntries(chunks []models.Chunk) []DocumentEntry {
	var entries []DocumentEntry
	pos := map[string]int{}
	for _, c := range chunks {
		i, ok := pos[c.SourceURL]
		if !ok {
			i = len(entries)
			pos[c.SourceURL] = i
			entries = append(entries, DocumentEntry{URL: c.SourceURL, Title: c.Title})
		}
		entries[i].Chunks++
	}
	return entries
}
