package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"site-rag/internal/helper"
	"site-rag/internal/index"
	"site-rag/internal/models"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	embed          chromem.EmbeddingFunc
	dbPath         string
	compress       bool
	encryptionKey  string
	filePath       string
}

var _ index.Store = (*VectorDBManager)(nil)

// Options configure a VectorDBManager.
type Options struct {
	Path       string
	Collection string
	InMemory   bool
	Compress   bool
	// EncryptionKey, when set, must be 32 bytes and encrypts exports.
	EncryptionKey string
	// ExportFile defaults to <Path>/<Collection>.gob
	ExportFile string
	// Embed is used by chromem only for documents or queries without a vector.
	Embed chromem.EmbeddingFunc
}

// NewVectorDBManager opens (or creates) the database and its collection.
func NewVectorDBManager(opts Options) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if opts.InMemory {
		db = chromem.NewDB()
	} else {
		if err := helper.CreateFolder(opts.Path); err != nil {
			return nil, fmt.Errorf("failed to create database folder: %w", err)
		}
		db, err = chromem.NewPersistentDB(opts.Path, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	filePath := opts.ExportFile
	if filePath == "" {
		filePath = filepath.Join(opts.Path, opts.Collection+".gob")
		if opts.Compress {
			filePath += ".gz"
		}
	}

	m := &VectorDBManager{
		db:             db,
		collectionName: opts.Collection,
		embed:          opts.Embed,
		dbPath:         opts.Path,
		compress:       opts.Compress,
		encryptionKey:  opts.EncryptionKey,
		filePath:       filePath,
	}
	if _, err := m.getOrCreateCollection(); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) getOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func (m *VectorDBManager) Reset(ctx context.Context) error {
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	_, err := m.getOrCreateCollection()
	return err
}

// Add stores the records with their provenance as metadata.
func (m *VectorDBManager) Add(ctx context.Context, records []models.ChunkEmbedding) error {
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   r.Content,
			Metadata:  metadata(r.Chunk),
			Embedding: r.Embedding,
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Int("documents", len(docs)).Str("collection", m.collectionName).Msg("Added documents")
	return nil
}

// Search runs a similarity search. k is clamped to the collection size since
// chromem rejects larger result counts.
func (m *VectorDBManager) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	n := m.collection.Count()
	if n == 0 {
		return nil, index.ErrEmptyIndex
	}
	k = max(1, min(k, n))

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{Chunk: chunkFromResult(r), Similarity: r.Similarity}
	}
	return out, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	return m.collection.Count(), nil
}

// Close is a no-op, the persistent db writes on every change.
func (m *VectorDBManager) Close() error {
	return nil
}

// Export writes the collection to a single file.
func (m *VectorDBManager) Export(ctx context.Context) (string, error) {
	log.Debug().Str("collection", m.collectionName).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")

	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return "", fmt.Errorf("failed to export database: %w", err)
	}
	return m.filePath, nil
}

// Import replaces the collection with the one in a file written by Export.
// The file is decoded once in memory first, so a bad file leaves the current
// collection untouched.
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	if filePath == "" {
		filePath = m.filePath
	}
	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Msg("Importing collection")

	check := chromem.NewDB()
	if err := check.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	if check.GetCollection(m.collectionName, nil) == nil {
		return fmt.Errorf("collection %s not found in %s", m.collectionName, filePath)
	}

	// chromem imports into the existing directory, so the old documents go first
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	_, err := m.getOrCreateCollection()
	return err
}

func metadata(c models.Chunk) map[string]string {
	md := map[string]string{
		models.MetaSource:  c.SourceURL,
		models.MetaTitle:   c.Title,
		models.MetaChunkID: strconv.Itoa(c.ChunkID),
		models.MetaTokens:  strconv.Itoa(c.Tokens),
	}
	if c.Context != "" {
		md[models.MetaContext] = c.Context
	}
	return md
}

func chunkFromResult(r chromem.Result) models.Chunk {
	id, _ := strconv.Atoi(r.Metadata[models.MetaChunkID])
	tokens, _ := strconv.Atoi(r.Metadata[models.MetaTokens])
	return models.Chunk{
		Content:   r.Content,
		SourceURL: r.Metadata[models.MetaSource],
		Title:     r.Metadata[models.MetaTitle],
		ChunkID:   id,
		Tokens:    tokens,
		Context:   r.Metadata[models.MetaContext],
	}
}
