package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"

	"site-rag/internal/config"
	"site-rag/internal/llmservice"
	"site-rag/internal/models"
)

var ErrEmptyQuestion = errors.New("question is empty")

// Model generates a completion from chat messages. langchaingo's openai and
// ollama clients satisfy it.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Chain answers questions from retrieved context, keeping conversation
// memory in a Transcript.
type Chain struct {
	model       Model
	retriever   *Retriever
	topK        int
	condense    bool
	temperature float64

	systemPrompt   prompts.PromptTemplate
	condensePrompt prompts.PromptTemplate
}

func NewChain(model Model, retriever *Retriever, cfg *config.RAGConfig, temperature float64) *Chain {
	k := cfg.TopK
	if k <= 0 {
		k = 4
	}
	return &Chain{
		model:          model,
		retriever:      retriever,
		topK:           k,
		condense:       cfg.CondenseQuestion,
		temperature:    temperature,
		systemPrompt:   prompts.NewPromptTemplate(models.SystemPromptTemplate, []string{"context"}),
		condensePrompt: prompts.NewPromptTemplate(models.CondensePromptTemplate, []string{"chat_history", "question"}),
	}
}

func (c *Chain) Retriever() *Retriever {
	return c.retriever
}

// Ask answers question in the conversation held by t and records the
// exchange in t.
func (c *Chain) Ask(ctx context.Context, t *Transcript, question string) (*models.PromptResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	t.serial.Lock()
	defer t.serial.Unlock()

	history, err := t.messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	standalone := question
	if c.condense && len(history) > 0 {
		standalone, err = c.condenseQuestion(ctx, history, question)
		if err != nil {
			return nil, err
		}
	}

	results, err := c.retriever.Retrieve(ctx, standalone, c.topK)
	if err != nil {
		return nil, err
	}

	system, err := c.systemPrompt.Format(map[string]any{"context": buildContext(results)})
	if err != nil {
		return nil, fmt.Errorf("failed to format system prompt: %w", err)
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	for _, m := range history {
		messages = append(messages, llms.TextParts(m.GetType(), m.GetContent()))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, question))

	answer, err := llmservice.GenerateContent(ctx, c.model, messages, c.temperature)
	if err != nil {
		return nil, err
	}
	if err := t.Record(ctx, question, answer); err != nil {
		return nil, fmt.Errorf("failed to record turn: %w", err)
	}

	return &models.PromptResponse{
		Query:   standalone,
		Sources: sources(results),
		Content: answer,
	}, nil
}

// condenseQuestion rewrites a follow-up into a question that can be
// retrieved on its own.
func (c *Chain) condenseQuestion(ctx context.Context, history []schema.ChatMessage, question string) (string, error) {
	buf, err := schema.GetBufferString(history, "Human", "Assistant")
	if err != nil {
		return "", fmt.Errorf("failed to format chat history: %w", err)
	}
	prompt, err := c.condensePrompt.Format(map[string]any{
		"chat_history": buf,
		"question":     question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format condense prompt: %w", err)
	}

	standalone, err := llmservice.GenerateContent(ctx, c.model, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, 0)
	if err != nil {
		return "", err
	}
	if standalone == "" {
		return question, nil
	}
	log.Debug().Str("question", question).Str("standalone", standalone).Msg("Condensed question")
	return standalone, nil
}

func buildContext(results []models.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Source: %s\n%s", r.SourceURL, r.Content)
	}
	return strings.Join(parts, models.ContextSeparator)
}

// sources lists the distinct source urls in result order.
func sources(results []models.SearchResult) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range results {
		if r.SourceURL == "" || seen[r.SourceURL] {
			continue
		}
		seen[r.SourceURL] = true
		out = append(out, r.SourceURL)
	}
	return out
}
