package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"site-rag/internal/models"
)

// SplitDocuments splits every document and flattens the result into one
// ordered list, documents in input order. Each chunk keeps its source url
// and its 1-based position inside that document.
func SplitDocuments(splitter textsplitter.TextSplitter, tok Tokenizer, docs []models.SourceDocument) ([]models.Chunk, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	metadatas := make([]map[string]any, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		metadatas[i] = map[string]any{
			models.MetaSource: d.URL,
			models.MetaTitle:  d.Title,
			"doc":             i,
		}
	}

	split, err := textsplitter.CreateDocuments(splitter, texts, metadatas)
	if err != nil {
		return nil, fmt.Errorf("failed to split documents: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(split))
	lastDoc, position := -1, 0
	for _, d := range split {
		docIdx, _ := d.Metadata["doc"].(int)
		if docIdx != lastDoc {
			lastDoc, position = docIdx, 0
		}
		position++

		source, _ := d.Metadata[models.MetaSource].(string)
		title, _ := d.Metadata[models.MetaTitle].(string)
		chunks = append(chunks, models.Chunk{
			Content:   d.PageContent,
			SourceURL: source,
			Title:     title,
			ChunkID:   position,
			Tokens:    tok.Count(d.PageContent),
		})
	}
	return chunks, nil
}
