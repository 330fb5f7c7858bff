package rag

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"

	"site-rag/internal/models"
)

// Transcript is the memory of one conversation. Asks on the same transcript
// run one at a time.
type Transcript struct {
	serial  sync.Mutex
	mu      sync.Mutex
	history *memory.ChatMessageHistory
	turns   []models.Turn
}

func NewTranscript() *Transcript {
	return &Transcript{history: memory.NewChatMessageHistory()}
}

// Turns returns a copy of the question/answer pairs, oldest first.
func (t *Transcript) Turns() []models.Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Turn(nil), t.turns...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.turns)
}

func (t *Transcript) messages(ctx context.Context) ([]schema.ChatMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Messages(ctx)
}

// Record appends a question/answer pair.
func (t *Transcript) Record(ctx context.Context, question, answer string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.history.AddUserMessage(ctx, question); err != nil {
		return err
	}
	if err := t.history.AddAIMessage(ctx, answer); err != nil {
		return err
	}
	t.turns = append(t.turns, models.Turn{Question: question, Answer: answer})
	return nil
}
