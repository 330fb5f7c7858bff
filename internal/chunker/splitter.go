package chunker

import (
	"errors"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidOverlap   = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// DefaultSeparators go from paragraph breaks down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter splits text on the coarsest separator that produces
// pieces within ChunkSize tokens, then merges neighbouring pieces back up to
// ChunkSize. Consecutive chunks share up to ChunkOverlap tokens: the tail of
// one chunk is repeated at the head of the next.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	Tokenizer    Tokenizer
}

var _ textsplitter.TextSplitter = (*RecursiveSplitter)(nil)

func NewRecursiveSplitter(size, overlap int, separators []string, tok Tokenizer) (*RecursiveSplitter, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrInvalidOverlap
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	if tok == nil {
		tok = WordTokenizer{}
	}
	return &RecursiveSplitter{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Separators:   separators,
		Tokenizer:    tok,
	}, nil
}

// SplitText implements textsplitter.TextSplitter.
func (s *RecursiveSplitter) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return s.split(text, s.Separators), nil
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	// fall back to the finest separator when none of them occurs
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitOn(text, separator) {
		if s.Tokenizer.Count(piece) <= s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(finer) == 0 {
			// indivisible, emitted even though it is over budget
			final = append(final, piece)
			continue
		}
		final = append(final, s.split(piece, finer)...)
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge packs pieces into chunks of at most ChunkSize tokens.
func (s *RecursiveSplitter) merge(pieces []string, separator string) []string {
	var chunks, current []string
	for _, piece := range pieces {
		if len(current) > 0 && s.measure(current, piece, separator) > s.ChunkSize {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// keep only the overlap tail, and only as much of it as leaves room for piece
			for len(current) > 0 &&
				(s.Tokenizer.Count(strings.Join(current, separator)) > s.ChunkOverlap ||
					s.measure(current, piece, separator) > s.ChunkSize) {
				current = current[1:]
			}
		}
		current = append(current, piece)
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// measure counts the tokens of current joined with next.
func (s *RecursiveSplitter) measure(current []string, next, separator string) int {
	var b strings.Builder
	for _, c := range current {
		b.WriteString(c)
		b.WriteString(separator)
	}
	b.WriteString(next)
	return s.Tokenizer.Count(b.String())
}

func splitOn(text, separator string) []string {
	parts := strings.Split(text, separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
