package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"site-rag/internal/app"
	"site-rag/internal/config"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "siterag",
	Short: "Ask questions about a website's articles",
	Long: `siterag ingests the articles of a blog feed or a help-center site into a
vector index and answers questions about them with a chat model.

Example usage:
  siterag ingest                       # index the configured feed
  siterag ingest --source crawl        # index a help-center crawl instead
  siterag query -q "What is streamlit?" -k 1
  siterag chat                         # console conversation
  siterag serve                        # web form on :5000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogger(cfg.Logging)
		log.Debug().Str("config", cfgFile).Str("mode", cfg.Source.Mode).Str("backend", cfg.Index.Backend).Msg("Loaded config")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with credentials to load into the environment")
}

func GetConfig() *config.Config {
	return cfg
}

func setupLogger(c config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// openApp wires the application from the loaded config. Callers close it.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, GetConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return a, nil
}
