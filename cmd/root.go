package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kura",
	Short: "Kura - feedback-weighted knowledge base server",
	Long: `Kura is a retrieval-augmented question answering server.

Documents are chunked, embedded, and stored in Postgres with pgvector.
Reader feedback reweights retrieval: well-rated articles surface first,
poorly rated ones sink. Run "kura serve" to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	slog.SetDefault(initLogger())
	return rootCmd.Execute()
}

// initLogger builds the process-wide fallback logger. DEBUG in the
// environment lowers the level.
func initLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
