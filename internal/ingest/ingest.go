package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"site-rag/internal/chunker"
	"site-rag/internal/config"
	"site-rag/internal/crawler"
	"site-rag/internal/embedding"
	"site-rag/internal/helper"
	"site-rag/internal/index"
	"site-rag/internal/llmservice"
	"site-rag/internal/models"
	"site-rag/internal/parser"
)

// Result counts what a pipeline run did.
type Result struct {
	Discovered int
	Fetched    int
	Skipped    int
	Chunks     int
	Files      []string
	Manifest   *index.Manifest
}

// Pipeline discovers documents, extracts their text, chunks it and hands
// the chunks to the index builder. Documents are processed in discovery order.
type Pipeline struct {
	cfg       *config.Config
	fetcher   *parser.Fetcher
	tokenizer chunker.Tokenizer
	splitter  *chunker.RecursiveSplitter
	builder   *index.Builder
	progress  io.Writer

	contextModel llmservice.Generator
}

// New builds a pipeline. builder may be nil for Scrape-only use.
func New(cfg *config.Config, builder *index.Builder, progress io.Writer) (*Pipeline, error) {
	tok, err := chunker.NewTokenizer(cfg.Chunk.Encoding)
	if err != nil {
		return nil, err
	}
	splitter, err := chunker.NewRecursiveSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Chunk.Separators, tok)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		fetcher:   parser.NewFetcher(time.Duration(cfg.Source.TimeoutSecs)*time.Second, cfg.Source.UserAgent),
		tokenizer: tok,
		splitter:  splitter,
		builder:   builder,
		progress:  progress,
	}, nil
}

// WithContextModel sets the chat model that writes chunk contexts when
// chunk.contextualize is on.
func (p *Pipeline) WithContextModel(m llmservice.Generator) *Pipeline {
	p.contextModel = m
	return p
}

// Run ingests the configured source and rebuilds the index.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.builder == nil {
		return nil, errors.New("pipeline has no index builder")
	}
	res := &Result{}

	docs, err := p.documents(ctx, res)
	if err != nil {
		return nil, err
	}

	chunks, err := chunker.SplitDocuments(p.splitter, p.tokenizer, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to split documents: %w", err)
	}
	res.Chunks = len(chunks)
	log.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Split documents")
	if len(chunks) == 0 {
		log.Warn().Msg("No chunks produced, the index will be empty")
	}

	if p.cfg.Chunk.Contextualize && len(chunks) > 0 {
		if p.contextModel == nil {
			return nil, errors.New("chunk.contextualize needs a chat model")
		}
		err := embedding.Contextualize(ctx, p.contextModel, docs, chunks, p.bar("situating chunks", len(chunks)))
		if err != nil {
			return nil, err
		}
		log.Info().Int("chunks", len(chunks)).Msg("Situated chunks")
	}

	m, err := p.builder.Build(ctx, chunks)
	if err != nil {
		return nil, err
	}
	res.Manifest = m
	return res, nil
}

// Scrape crawls from the seed and writes each article's text to
// <output_dir>/<article id>.txt instead of indexing it.
func (p *Pipeline) Scrape(ctx context.Context) (*Result, error) {
	res := &Result{}
	urls, err := p.crawl(ctx)
	if err != nil {
		return nil, err
	}
	res.Discovered = len(urls)

	if err := helper.CreateFolder(p.cfg.Scrape.OutputDir); err != nil {
		return nil, err
	}

	docs := p.extract(ctx, urls, p.cfg.Scrape.ContentSelector, res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, d := range docs {
		path := filepath.Join(p.cfg.Scrape.OutputDir, helper.ArticleID(d.URL)+".txt")
		if err := os.WriteFile(path, []byte(parser.CleanArticleText(d.Text)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		res.Files = append(res.Files, path)
	}
	log.Info().Int("articles", len(res.Files)).Str("dir", p.cfg.Scrape.OutputDir).Msg("Scraped articles")
	return res, nil
}

// Discover returns the document urls of the configured feed or crawl.
func (p *Pipeline) Discover(ctx context.Context) ([]string, error) {
	switch p.cfg.Source.Mode {
	case config.SourceFeed:
		return crawler.FeedURLs(ctx, p.fetcher, p.cfg.Source.FeedURL, p.cfg.Source.Entries)
	case config.SourceCrawl:
		return p.crawl(ctx)
	default:
		return nil, fmt.Errorf("source mode %q has no urls to discover", p.cfg.Source.Mode)
	}
}

func (p *Pipeline) documents(ctx context.Context, res *Result) ([]models.SourceDocument, error) {
	if p.cfg.Source.Mode == config.SourceFiles {
		docs, err := parser.LoadDirectory(p.cfg.Source.FilesDir)
		if err != nil {
			return nil, err
		}
		res.Discovered = len(docs)
		res.Fetched = len(docs)
		return docs, nil
	}

	urls, err := p.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}
	res.Discovered = len(urls)
	log.Info().Int("urls", len(urls)).Str("mode", p.cfg.Source.Mode).Msg("Discovered documents")

	docs := p.extract(ctx, urls, p.cfg.Source.ContentSelector, res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (p *Pipeline) crawl(ctx context.Context) ([]string, error) {
	c := crawler.New(p.fetcher, crawler.Options{
		MaxDepth: p.cfg.Source.MaxDepth,
		Follow:   p.cfg.Source.Follow,
		Exclude:  p.cfg.Source.Exclude,
		Include:  p.cfg.Source.Include,
	})
	return c.Crawl(ctx, p.cfg.Source.SeedURL)
}

// bar returns a progress callback writing to p.progress, or nil.
func (p *Pipeline) bar(description string, total int) func(done int) {
	if p.progress == nil || total == 0 {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.progress),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.progress) }),
	)
	return func(done int) { _ = bar.Set(done) }
}

// extract fetches every url, logging and skipping the ones that fail.
func (p *Pipeline) extract(ctx context.Context, urls []string, selector string, res *Result) []models.SourceDocument {
	progress := p.bar("fetching pages", len(urls))

	var docs []models.SourceDocument
	for i, u := range urls {
		doc, err := p.fetcher.ExtractPage(ctx, u, selector)
		if progress != nil {
			progress(i + 1)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Str("url", u).Msg("Skipping document")
			res.Skipped++
			continue
		}
		res.Fetched++
		docs = append(docs, doc)
	}
	return docs
}
