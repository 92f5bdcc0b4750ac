package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	providerFlag  string
	modelFlag     string
	characterFlag string
	variantFlag   string
	verboseFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "boarman",
	Short: "Boarman - Boris Boarman grant-platform agent",
	Long: `Boarman runs the Boris Boarman character: a grant-platform agent that
chats about Boarman and analyzes Twitter profiles mentioned with @handle.

It talks to any OpenAI-compatible provider and stores conversations and
analyses in a local SQLite database.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Keep the REPL quiet unless asked; the server logs requests by default.
		level := slog.LevelWarn
		if cmd.Name() == "serve" {
			level = slog.LevelInfo
		}
		if verboseFlag {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "LLM provider name from config (default: default_provider)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model to use for every tier (overrides config)")
	rootCmd.PersistentFlags().StringVar(&characterFlag, "character", "", "Path to a character YAML file (default: built-in Boris Boarman)")
	rootCmd.PersistentFlags().StringVar(&variantFlag, "variant", "", "Analysis variant: grant-fit, project-fit or vc-score")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
