package chunker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var offlineBpe sync.Once

// Tokenizer measures text length in model tokens.
type Tokenizer interface {
	Count(text string) int
}

// TiktokenTokenizer counts tokens with an OpenAI BPE encoding. Special
// tokens are treated as plain text.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named encoding, e.g. cl100k_base. The BPE
// ranks are embedded in the binary, so no download happens.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	offlineBpe.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// WordTokenizer counts whitespace separated words. It needs no model files,
// which makes it the tokenizer of choice for offline runs.
type WordTokenizer struct{}

func (WordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// NewTokenizer returns the tokenizer for an encoding name; "words" selects
// WordTokenizer, anything else is looked up in tiktoken.
func NewTokenizer(encoding string) (Tokenizer, error) {
	if encoding == "words" {
		return WordTokenizer{}, nil
	}
	return NewTiktokenTokenizer(encoding)
}
