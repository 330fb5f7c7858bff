package app

import (
	"context"
	"fmt"
	"io"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"site-rag/internal/chromemdb"
	"site-rag/internal/config"
	"site-rag/internal/db"
	"site-rag/internal/embedding"
	"site-rag/internal/index"
	"site-rag/internal/ingest"
	"site-rag/internal/llmservice"
	"site-rag/internal/rag"
)

// App holds the components shared by the commands.
type App struct {
	Config    *config.Config
	Embedder  embeddings.Embedder
	Store     index.Store
	Retriever *rag.Retriever

	model rag.Model
	chain *rag.Chain
}

// New wires the embedder and the index. The chat model is created on first
// use so commands that only search do not need completion credentials.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	emb, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(ctx, cfg, emb)
	if err != nil {
		return nil, err
	}
	index.WarnOnMismatch(cfg.Index.ManifestPath, cfg.EmbedLLM.Model)

	return &App{
		Config:    cfg,
		Embedder:  emb,
		Store:     store,
		Retriever: rag.NewRetriever(emb, store),
	}, nil
}

// NewStore opens the configured index backend.
func NewStore(ctx context.Context, cfg *config.Config, emb embeddings.Embedder) (index.Store, error) {
	switch cfg.Index.Backend {
	case config.BackendPGVector:
		s, err := db.NewPGStore(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := s.InitDB(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return chromemdb.NewVectorDBManager(chromemdb.Options{
			Path:          cfg.Index.Path,
			Collection:    cfg.Index.Collection,
			Compress:      cfg.Index.Compress,
			EncryptionKey: cfg.RAG.EncryptionKey,
			ExportFile:    cfg.Index.ExportFile,
			Embed:         chromem.EmbeddingFunc(emb.EmbedQuery),
		})
	}
}

// WithModel sets the chat model instead of building it from config.
func (a *App) WithModel(m rag.Model) *App {
	a.model = m
	a.chain = nil
	return a
}

// Model returns the chat model, creating it from chat_llm on first use.
func (a *App) Model() (rag.Model, error) {
	if a.model == nil {
		m, err := llmservice.NewModel(&a.Config.ChatLLM)
		if err != nil {
			return nil, err
		}
		a.model = m
	}
	return a.model, nil
}

// Chain returns the answer chain, creating the chat model if needed.
func (a *App) Chain() (*rag.Chain, error) {
	if a.chain != nil {
		return a.chain, nil
	}
	m, err := a.Model()
	if err != nil {
		return nil, err
	}
	a.chain = rag.NewChain(m, a.Retriever, &a.Config.RAG, a.Config.ChatLLM.Temperature)
	return a.chain, nil
}

// Pipeline returns an ingestion pipeline that rebuilds this app's index.
func (a *App) Pipeline(progress io.Writer) (*ingest.Pipeline, error) {
	builder := &index.Builder{
		Store:        a.Store,
		Embedder:     a.Embedder,
		BatchSize:    a.Config.EmbedLLM.BatchSize,
		ManifestPath: a.Config.Index.ManifestPath,
		Template: index.Manifest{
			Backend:        a.Config.Index.Backend,
			Collection:     a.Config.Index.Collection,
			EmbeddingModel: a.Config.EmbedLLM.Model,
			ChunkSize:      a.Config.Chunk.Size,
			ChunkOverlap:   a.Config.Chunk.Overlap,
		},
		Progress: progress,
	}
	p, err := ingest.New(a.Config, builder, progress)
	if err != nil {
		return nil, err
	}
	if a.Config.Chunk.Contextualize {
		m, err := a.Model()
		if err != nil {
			return nil, fmt.Errorf("chunk.contextualize needs a chat model: %w", err)
		}
		p.WithContextModel(m)
	}
	return p, nil
}

// Export writes the chromem collection to index.export_file.
func (a *App) Export(ctx context.Context) (string, error) {
	m, ok := a.Store.(*chromemdb.VectorDBManager)
	if !ok {
		return "", fmt.Errorf("export is only supported by the %s backend", config.BackendChromem)
	}
	return m.Export(ctx)
}

// Import replaces the chromem collection with the one in file.
func (a *App) Import(ctx context.Context, file string) error {
	m, ok := a.Store.(*chromemdb.VectorDBManager)
	if !ok {
		return fmt.Errorf("import is only supported by the %s backend", config.BackendChromem)
	}
	return m.Import(ctx, file)
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	if err := a.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing index")
		return err
	}
	return nil
}
