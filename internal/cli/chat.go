package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"site-rag/internal/models"
	"site-rag/internal/rag"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in the console",
	Long: `Start a console conversation. Follow-up questions are answered with the
earlier exchanges as context. Type "exit" or send EOF to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.Chain()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	prompt := color.New(color.FgRed)
	answer := color.New(color.FgGreen)
	sources := color.New(color.Faint)

	transcript := rag.NewTranscript()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		prompt.Fprint(out, "Question (type 'exit' to quit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == models.ExitCommand {
			return nil
		}
		if question == "" {
			continue
		}

		resp, err := chain.Ask(cmd.Context(), transcript, question)
		if err != nil {
			return err
		}
		answer.Fprintln(out, resp.Content)
		if len(resp.Sources) > 0 {
			sources.Fprintln(out, "Sources: "+strings.Join(resp.Sources, ", "))
		}
		fmt.Fprintln(out)
	}
}
