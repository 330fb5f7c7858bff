package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chunk.Size != 400 {
		t.Errorf("expected Chunk.Size=400, got %d", cfg.Chunk.Size)
	}
	if cfg.Chunk.Overlap != 20 {
		t.Errorf("expected Chunk.Overlap=20, got %d", cfg.Chunk.Overlap)
	}
	if cfg.Source.Entries != 10 {
		t.Errorf("expected Source.Entries=10, got %d", cfg.Source.Entries)
	}
	if got := len(cfg.Chunk.Separators); got != 4 || cfg.Chunk.Separators[3] != "" {
		t.Errorf("expected 4 separators ending with the empty string, got %q", cfg.Chunk.Separators)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadConfig_NonExistent(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Index.Collection != "site_rag" {
		t.Errorf("expected default collection, got %q", cfg.Index.Collection)
	}
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source:
  mode: crawl
  seed_url: https://help.example.com/support/solutions/
  content_selector: div.fw-content
chunk:
  size: 200
  overlap: 10
rag:
  top_k: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Mode != SourceCrawl {
		t.Errorf("expected crawl mode, got %q", cfg.Source.Mode)
	}
	if cfg.Source.ContentSelector != "div.fw-content" {
		t.Errorf("expected fw-content selector, got %q", cfg.Source.ContentSelector)
	}
	if cfg.Chunk.Size != 200 || cfg.Chunk.Overlap != 10 {
		t.Errorf("expected 200/10 chunking, got %d/%d", cfg.Chunk.Size, cfg.Chunk.Overlap)
	}
	if cfg.RAG.TopK != 2 {
		t.Errorf("expected TopK=2, got %d", cfg.RAG.TopK)
	}
	// untouched sections keep their defaults
	if cfg.Index.Backend != BackendChromem {
		t.Errorf("expected chromem backend, got %q", cfg.Index.Backend)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap too large", "chunk:\n  size: 10\n  overlap: 10\n"},
		{"unknown mode", "source:\n  mode: sitemap\n"},
		{"unknown backend", "index:\n  backend: faiss\n"},
		{"short key", "rag:\n  encryption_key: short\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-test")
	t.Setenv(EnvDatabaseDSN, "postgres://localhost/rag")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EmbedLLM.Key != "sk-test" || cfg.ChatLLM.Key != "sk-test" {
		t.Errorf("expected api key from env, got %q/%q", cfg.EmbedLLM.Key, cfg.ChatLLM.Key)
	}
	if cfg.Database.DSN != "postgres://localhost/rag" {
		t.Errorf("expected dsn from env, got %q", cfg.Database.DSN)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":8080"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", loaded.Server.Addr)
	}
}

func TestDatabaseDimension_FollowsEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"no file", "", 1536},
		{"hash embedder", "embed_llm:\n  provider: hash\n  dimension: 256\n", 256},
		{"ollama embedder", "embed_llm:\n  provider: ollama\n  model: nomic-embed-text\n  dimension: 768\n", 768},
		{"explicit", "embed_llm:\n  dimension: 256\ndatabase:\n  dimension: 512\n", 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Database.Dimension != tt.want {
				t.Errorf("expected database dimension %d, got %d", tt.want, cfg.Database.Dimension)
			}
		})
	}
}

func TestLoadConfig_ServerSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  max_sessions: 50\n  session_ttl: 30m\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.MaxSessions != 50 || cfg.Server.SessionTTL != 30*time.Minute {
		t.Errorf("expected 50 sessions for 30m, got %d for %s", cfg.Server.MaxSessions, cfg.Server.SessionTTL)
	}
	if cfg.Server.Addr != ":5000" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}
