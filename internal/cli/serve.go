package cli

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"site-rag/internal/server"
	"site-rag/internal/tui"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question form over HTTP",
	Long: `Serve a web page with a question form. POST /answer returns the answer as
plain text and GET /healthz reports the index size.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat in a terminal widget",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(serveCmd, tuiCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.Chain()
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.NewServer(chain, a.Store, cfg.RAG.Title).
		WithSessionLimits(cfg.Server.MaxSessions, cfg.Server.SessionTTL)
	err = srv.Start(ctx, addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.Chain()
	if err != nil {
		return err
	}

	m := tui.New(cmd.Context(), chain, cfg.RAG.Title)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
