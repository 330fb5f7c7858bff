package models

// SourceDocument is a discovered page and the text extracted from its content region.
type SourceDocument struct {
	URL   string
	Title string
	Text  string
}

// Chunk represents a token bounded slice of a source document with its provenance
type Chunk struct {
	Content   string
	SourceURL string
	Title     string
	ChunkID   int // position within the document's split sequence, 1-based
	Tokens    int
	Context   string // optional summary situating the chunk in its document
}

// EmbedText is the text embedded for the chunk: its context, when set,
// followed by its content.
func (c Chunk) EmbedText() string {
	if c.Context == "" {
		return c.Content
	}
	return c.Context + "\n\n" + c.Content
}

// ChunkEmbedding pairs a chunk with the vector computed for it.
type ChunkEmbedding struct {
	Chunk
	Embedding []float32
}

// SearchResult is a chunk returned from the index with its similarity to the query.
type SearchResult struct {
	Chunk
	Similarity float32
}

type PromptResponse struct {
	Query   string
	Sources []string
	Content string
}

// Turn is one question/answer exchange of a conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
