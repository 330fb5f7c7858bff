package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"site-rag/internal/config"
	"site-rag/internal/index"
	"site-rag/internal/models"
)

// ChunkRecord is a row of the chunks table.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Content       string          `bun:"content,notnull"`
	SourceURL     string          `bun:"source_url,notnull"`
	Title         string          `bun:"title"`
	ChunkID       int             `bun:"chunk_id,notnull"`
	Tokens        int             `bun:"tokens"`
	Context       string          `bun:"context"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float64         `bun:"similarity,scanonly"`
}

// PGStore is an index.Store backed by postgres with the pgvector extension.
type PGStore struct {
	db        *bun.DB
	dimension int
}

var _ index.Store = (*PGStore)(nil)

// NewPGStore opens the database named by cfg. No connection is made until
// the first query.
func NewPGStore(cfg *config.DatabaseConfig) (*PGStore, error) {
	sqldb, err := ConnectDB(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &PGStore{db: NewDB(sqldb, cfg.Debug), dimension: cfg.Dimension}, nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens dsn with either bun's pgdriver or lib/pq.
func ConnectDB(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	switch driver {
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
	case "pq":
		return sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// InitDB creates the vector extension and the chunks table.
func (s *PGStore) InitDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	return nil
}

func (s *PGStore) Reset(ctx context.Context) error {
	if _, err := s.db.NewDropTable().Model((*ChunkRecord)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop chunks table: %w", err)
	}
	return s.InitDB(ctx)
}

func (s *PGStore) Add(ctx context.Context, records []models.ChunkEmbedding) error {
	rows, err := toRecords(records, s.dimension)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	log.Debug().Int("chunks", len(rows)).Msg("Inserted chunks")
	return nil
}

// Search orders by cosine distance, reporting 1 - distance as similarity.
func (s *PGStore) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, index.ErrEmptyIndex
	}

	v := pgvector.NewVector(vector)
	var rows []ChunkRecord
	err = s.db.NewSelect().
		Model(&rows).
		Column("id", "content", "source_url", "title", "chunk_id", "tokens").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", v).
		OrderExpr("embedding <=> ?", v).
		Limit(max(1, k)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	out := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = r.searchResult()
	}
	return out, nil
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*ChunkRecord)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}

func toRecords(records []models.ChunkEmbedding, dimension int) ([]ChunkRecord, error) {
	rows := make([]ChunkRecord, 0, len(records))
	for _, r := range records {
		if dimension > 0 && len(r.Embedding) != dimension {
			return nil, fmt.Errorf("chunk %d of %s has %d dimensions, table expects %d", r.ChunkID, r.SourceURL, len(r.Embedding), dimension)
		}
		rows = append(rows, ChunkRecord{
			Content:   r.Content,
			SourceURL: r.SourceURL,
			Title:     r.Title,
			ChunkID:   r.ChunkID,
			Tokens:    r.Tokens,
			Context:   r.Context,
			Embedding: pgvector.NewVector(r.Embedding),
		})
	}
	return rows, nil
}

func (r ChunkRecord) searchResult() models.SearchResult {
	return models.SearchResult{
		Chunk: models.Chunk{
			Content:   r.Content,
			SourceURL: r.SourceURL,
			Title:     r.Title,
			ChunkID:   r.ChunkID,
			Tokens:    r.Tokens,
			Context:   r.Context,
		},
		Similarity: float32(r.Similarity),
	}
}
