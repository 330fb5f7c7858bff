package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"site-rag/internal/helper"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the index without calling the chat model",
	Long: `Embed a question and print the nearest chunks with their sources.

Examples:
  siterag query -q "What is streamlit?" -k 1
  siterag query -q "private endpoints" -k 4 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to search for (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 1, "number of chunks")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Retriever.Retrieve(cmd.Context(), queryText, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		data, _ := json.MarshalIndent(results, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Fprintf(out, "--- [%d] %s #%d (similarity: %.3f) ---\n", i+1, r.SourceURL, r.ChunkID, r.Similarity)
		fmt.Fprintln(out, helper.Truncate(r.Content, 500))
		fmt.Fprintln(out)
	}
	return nil
}
