package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"site-rag/internal/config"
)

var (
	ingestSource string
	ingestExport bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the index from the configured source",
	Long: `Discover documents from an RSS feed, a same-site crawl or a local folder,
extract their text, split it into token bounded chunks, embed the chunks and
replace the index with them.

Examples:
  siterag ingest
  siterag ingest --source crawl
  siterag ingest --source files --export`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl the help center and save each article as a text file",
	Long: `Crawl from source.seed_url and write the text of every article to
<scrape.output_dir>/<article id>.txt. Run "siterag ingest --source files" with
source.files_dir pointing at the same folder to index them.`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the index with a collection exported by ingest --export",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(ingestCmd, scrapeCmd, importCmd)
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "source mode: feed, crawl or files (default from config)")
	ingestCmd.Flags().BoolVar(&ingestExport, "export", false, "also export the collection to index.export_file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if ingestSource != "" {
		cfg.Source.Mode = ingestSource
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Pipeline(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Discovered %d documents, fetched %d, skipped %d\n", res.Discovered, res.Fetched, res.Skipped)
	fmt.Fprintf(out, "Indexed %d chunks into %s (%s)\n", res.Chunks, indexLocation(cfg), cfg.Index.Backend)

	if ingestExport {
		file, err := a.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported collection to %s\n", file)
	}
	return nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Pipeline(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	res, err := p.Scrape(cmd.Context())
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Found %d links, saved %d articles to %s\n", res.Discovered, len(res.Files), cfg.Scrape.OutputDir)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	file := ""
	if len(args) > 0 {
		file = args[0]
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Import(cmd.Context(), file); err != nil {
		return err
	}
	n, _ := a.Store.Count(cmd.Context())
	log.Info().Int("chunks", n).Msg("Imported collection")
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chunks\n", n)
	return nil
}

func indexLocation(cfg *config.Config) string {
	if cfg.Index.Backend == config.BackendPGVector {
		return "postgres"
	}
	return cfg.Index.Path
}
