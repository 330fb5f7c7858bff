package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source modes
const (
	SourceFeed  = "feed"
	SourceCrawl = "crawl"
	SourceFiles = "files"
)

// Index backends
const (
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"
)

// Environment overrides, applied after the .env file is loaded.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvDatabaseDSN = "SITERAG_DATABASE_DSN"
	EnvLogLevel    = "SITERAG_LOG_LEVEL"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Chunk    ChunkConfig    `yaml:"chunk"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig describes where documents are discovered and how their text is found.
type SourceConfig struct {
	Mode            string   `yaml:"mode"` // feed, crawl or files
	FeedURL         string   `yaml:"feed_url"`
	Entries         int      `yaml:"entries"`
	SeedURL         string   `yaml:"seed_url"`
	MaxDepth        int      `yaml:"max_depth"`
	Follow          []string `yaml:"follow"`
	Exclude         []string `yaml:"exclude"`
	Include         []string `yaml:"include"`
	ContentSelector string   `yaml:"content_selector"`
	FilesDir        string   `yaml:"files_dir"`
	UserAgent       string   `yaml:"user_agent"`
	TimeoutSecs     int      `yaml:"timeout_secs"`
}

type ChunkConfig struct {
	Size       int      `yaml:"size"`
	Overlap    int      `yaml:"overlap"`
	Separators []string `yaml:"separators"`
	Encoding   string   `yaml:"encoding"` // tiktoken encoding name

	// Contextualize asks the chat model for a short summary situating each
	// chunk in its document and embeds it with the chunk.
	Contextualize bool `yaml:"contextualize"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, ollama or hash (embeddings only)
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Key         string  `yaml:"key"`
	BatchSize   int     `yaml:"batch_size"`
	Dimension   int     `yaml:"dimension"`
	Temperature float64 `yaml:"temperature"`
}

type RAGConfig struct {
	TopK             int    `yaml:"top_k"`
	CondenseQuestion bool   `yaml:"condense_question"`
	EncryptionKey    string `yaml:"encryption_key"`
	Title            string `yaml:"title"`
}

type IndexConfig struct {
	Backend      string `yaml:"backend"`
	Path         string `yaml:"path"`
	Collection   string `yaml:"collection"`
	ExportFile   string `yaml:"export_file"`
	Compress     bool   `yaml:"compress"`
	ManifestPath string `yaml:"manifest_path"`
}

type DatabaseConfig struct {
	Driver    string `yaml:"driver"` // pgdriver or pq
	DSN       string `yaml:"dsn"`
	Debug     bool   `yaml:"debug"`
	Dimension int    `yaml:"dimension"`
}

// ScrapeConfig controls the crawl-and-save mode, which writes article text to
// disk instead of indexing it.
type ScrapeConfig struct {
	OutputDir       string `yaml:"output_dir"`
	ContentSelector string `yaml:"content_selector"`
}

type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	MaxSessions int           `yaml:"max_sessions"`
	SessionTTL  time.Duration `yaml:"session_ttl"` // e.g. 30m
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used by the blog ingestion script:
// ten feed entries, 400 token chunks with 20 tokens of overlap.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Mode:            SourceFeed,
			FeedURL:         "https://blog.baeke.info/feed/",
			Entries:         10,
			SeedURL:         "https://thola.freshdesk.com/support/solutions/",
			MaxDepth:        1,
			Follow:          []string{"folder"},
			Exclude:         []string{"folders"},
			Include:         []string{"articles"},
			ContentSelector: "div.entry-content",
			FilesDir:        "articles",
			UserAgent:       "site-rag/1.0",
			TimeoutSecs:     30,
		},
		Chunk: ChunkConfig{
			Size:       400,
			Overlap:    20,
			Separators: []string{"\n\n", "\n", " ", ""},
			Encoding:   "cl100k_base",
		},
		EmbedLLM: LLMConfig{
			Provider:  "openai",
			Model:     "text-embedding-ada-002",
			BatchSize: 64,
			Dimension: 1536,
		},
		ChatLLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Temperature: 0,
		},
		RAG: RAGConfig{
			TopK:             4,
			CondenseQuestion: true,
			Title:            "blog.baeke.info",
		},
		Index: IndexConfig{
			Backend:      BackendChromem,
			Path:         "./chromemdb",
			Collection:   "site_rag",
			ManifestPath: "./siterag-manifest.db",
		},
		// Database.Dimension follows EmbedLLM.Dimension unless set.
		Database: DatabaseConfig{
			Driver: "pgdriver",
		},
		Scrape: ScrapeConfig{
			OutputDir:       "articles",
			ContentSelector: "div.fw-content",
		},
		Server: ServerConfig{
			Addr:        ":5000",
			MaxSessions: 1000,
			SessionTTL:  time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the yaml file at path on top of DefaultConfig. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyDefaults()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as yaml, creating parent folders.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings that would make the pipeline misbehave silently.
func (c *Config) Validate() error {
	switch c.Source.Mode {
	case SourceFeed, SourceCrawl, SourceFiles:
	default:
		return fmt.Errorf("unknown source mode %q", c.Source.Mode)
	}
	switch c.Index.Backend {
	case BackendChromem, BackendPGVector:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	if c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Chunk.Overlap, c.Chunk.Size)
	}
	if k := c.RAG.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("encryption key must be 32 bytes, got %d", len(k))
	}
	return nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Source.Mode == "" {
		c.Source.Mode = def.Source.Mode
	}
	if c.Source.Entries <= 0 {
		c.Source.Entries = def.Source.Entries
	}
	if c.Source.ContentSelector == "" {
		c.Source.ContentSelector = def.Source.ContentSelector
	}
	if c.Source.TimeoutSecs <= 0 {
		c.Source.TimeoutSecs = def.Source.TimeoutSecs
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = def.Source.UserAgent
	}
	if c.Chunk.Size <= 0 {
		c.Chunk.Size = def.Chunk.Size
	}
	if c.Chunk.Overlap < 0 {
		c.Chunk.Overlap = 0
	}
	if len(c.Chunk.Separators) == 0 {
		c.Chunk.Separators = def.Chunk.Separators
	}
	if c.Chunk.Encoding == "" {
		c.Chunk.Encoding = def.Chunk.Encoding
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = def.EmbedLLM.Provider
	}
	if c.EmbedLLM.BatchSize <= 0 {
		c.EmbedLLM.BatchSize = def.EmbedLLM.BatchSize
	}
	if c.EmbedLLM.Dimension <= 0 {
		c.EmbedLLM.Dimension = def.EmbedLLM.Dimension
	}
	if c.ChatLLM.Provider == "" {
		c.ChatLLM.Provider = def.ChatLLM.Provider
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = def.RAG.TopK
	}
	if c.Index.Backend == "" {
		c.Index.Backend = def.Index.Backend
	}
	if c.Index.Path == "" {
		c.Index.Path = def.Index.Path
	}
	if c.Index.Collection == "" {
		c.Index.Collection = def.Index.Collection
	}
	if c.Index.ManifestPath == "" {
		c.Index.ManifestPath = def.Index.ManifestPath
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.Dimension <= 0 {
		c.Database.Dimension = c.EmbedLLM.Dimension
	}
	if c.Scrape.OutputDir == "" {
		c.Scrape.OutputDir = def.Scrape.OutputDir
	}
	if c.Scrape.ContentSelector == "" {
		c.Scrape.ContentSelector = def.Scrape.ContentSelector
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.MaxSessions <= 0 {
		c.Server.MaxSessions = def.Server.MaxSessions
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = def.Server.SessionTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvOpenAIKey); key != "" {
		if c.EmbedLLM.Key == "" {
			c.EmbedLLM.Key = key
		}
		if c.ChatLLM.Key == "" {
			c.ChatLLM.Key = key
		}
	}
	if dsn := os.Getenv(EnvDatabaseDSN); dsn != "" {
		c.Database.DSN = dsn
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
}
