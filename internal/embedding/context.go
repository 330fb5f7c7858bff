package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"

	"site-rag/internal/llmservice"
	"site-rag/internal/models"
)

var contextPrompt = prompts.NewPromptTemplate(models.ContextPromptTemplate, []string{"document", "chunk"})

// GenerateContext asks llm for a short summary situating chunk within document.
func GenerateContext(ctx context.Context, llm llmservice.Generator, document, chunk string) (string, error) {
	log.Debug().Str("chunk", chunk).Msg("Generating context for chunk")

	prompt, err := contextPrompt.Format(map[string]any{
		"document": document,
		"chunk":    chunk,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format context prompt: %w", err)
	}
	return llmservice.GenerateContent(ctx, llm, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, 0)
}

// Contextualize sets Context on every chunk, using the text of the document
// the chunk was split from. Chunks whose document is unknown are left as is.
func Contextualize(ctx context.Context, llm llmservice.Generator, docs []models.SourceDocument, chunks []models.Chunk, progress func(done int)) error {
	texts := make(map[string]string, len(docs))
	for _, d := range docs {
		texts[d.URL] = d.Text
	}

	for i := range chunks {
		document, ok := texts[chunks[i].SourceURL]
		if !ok {
			log.Warn().Str("url", chunks[i].SourceURL).Msg("No document for chunk, skipping context")
			continue
		}
		summary, err := GenerateContext(ctx, llm, document, chunks[i].Content)
		if err != nil {
			return fmt.Errorf("failed to situate chunk %d of %s: %w", chunks[i].ChunkID, chunks[i].SourceURL, err)
		}
		chunks[i].Context = summary
		if progress != nil {
			progress(i + 1)
		}
	}
	return nil
}
