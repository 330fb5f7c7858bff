package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"site-rag/internal/config"
	"site-rag/internal/rag"
)

type cannedModel struct{}

func (cannedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "canned"}}}, nil
}

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Chunk.Encoding = "words"
	cfg.EmbedLLM = config.LLMConfig{Provider: "hash", Model: "hash", Dimension: 32, BatchSize: 8}
	cfg.Index.Path = filepath.Join(dir, "chromemdb")
	cfg.Index.ManifestPath = filepath.Join(dir, "manifest.db")
	cfg.Index.ExportFile = filepath.Join(dir, "export.gob")
	return cfg
}

func TestNew(t *testing.T) {
	a, err := New(context.Background(), offlineConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Embedder == nil || a.Store == nil || a.Retriever == nil {
		t.Fatalf("incomplete app %+v", a)
	}
	if n, _ := a.Store.Count(context.Background()); n != 0 {
		t.Errorf("expected a fresh index, got %d chunks", n)
	}
	if _, err := a.Pipeline(nil); err != nil {
		t.Errorf("pipeline: %v", err)
	}
	if _, err := a.Export(context.Background()); err != nil {
		t.Errorf("export: %v", err)
	}
}

func TestChain(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.ChatLLM.Provider = "hash"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Chain(); err == nil {
		t.Error("expected an error for an embedding-only chat provider")
	}

	c1, err := a.WithModel(cannedModel{}).Chain()
	if err != nil {
		t.Fatal(err)
	}
	c2, _ := a.Chain()
	if c1 != c2 {
		t.Error("expected the chain to be reused")
	}

	var _ rag.Model = cannedModel{}
}

func TestNewStore_PGVector(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Index.Backend = config.BackendPGVector
	cfg.Database.DSN = ""
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected an error without a database dsn")
	}
}

func TestNew_UnknownEmbedder(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.EmbedLLM.Provider = "cohere"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected an unknown provider to fail")
	}
}

func TestPipeline_ContextualizeNeedsModel(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Chunk.Contextualize = true
	cfg.ChatLLM.Provider = "hash"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, err := a.Pipeline(nil); err == nil {
		t.Error("expected an error when no chat model can be built")
	}
	if _, err := a.WithModel(cannedModel{}).Pipeline(nil); err != nil {
		t.Errorf("pipeline with a model: %v", err)
	}
}
