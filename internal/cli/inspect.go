package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"site-rag/internal/embedding"
	"site-rag/internal/helper"
	"site-rag/internal/index"
)

var sourcesJSON bool

var similarityCmd = &cobra.Command{
	Use:   "similarity TEXT1 TEXT2",
	Short: "Compare the embeddings of two strings",
	Long: `Embed two strings with the configured model and print their cosine
similarity and euclidean distance.

Example:
  siterag similarity "king" "queen"`,
	Args: cobra.ExactArgs(2),
	RunE: runSimilarity,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the documents in the index",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(similarityCmd, sourcesCmd)
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output as JSON")
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	emb, err := embedding.NewEmbedder(&GetConfig().EmbedLLM)
	if err != nil {
		return err
	}
	vectors, err := emb.EmbedDocuments(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("failed to embed: %w", err)
	}
	if len(vectors) != 2 {
		return fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}

	cos, err := embedding.CosineSimilarity(vectors[0], vectors[1])
	if err != nil {
		return err
	}
	dist, err := embedding.EuclideanDistance(vectors[0], vectors[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cosine similarity: %.4f\n", cos)
	fmt.Fprintf(out, "Euclidean distance: %.4f\n", dist)
	return nil
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	m, err := index.LoadManifest(cfg.Index.ManifestPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sourcesJSON {
		return helper.PrettyPrint(out, struct {
			*index.Manifest
			Documents []index.DocumentEntry `json:"documents"`
		}{m, m.Documents})
	}

	fmt.Fprintf(out, "Built %s with %s (%d dimensions), %s backend\n",
		m.BuiltAt.Local().Format("2006-01-02 15:04"), m.EmbeddingModel, m.Dimension, m.Backend)
	fmt.Fprintf(out, "Chunk size %d, overlap %d\n\n", m.ChunkSize, m.ChunkOverlap)
	for _, d := range m.Documents {
		fmt.Fprintf(out, "%4d  %s", d.Chunks, d.URL)
		if d.Title != "" {
			fmt.Fprintf(out, "  (%s)", d.Title)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "\n%d documents, %d chunks\n", len(m.Documents), m.Chunks)
	if err := m.CheckModel(cfg.EmbedLLM.Model); err != nil {
		fmt.Fprintf(out, "warning: %v\n", err)
	}
	return nil
}
