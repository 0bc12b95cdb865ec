// Package cmd wires the CLI surface. Every subcommand operates on a
// repository graph persisted in the SQLite database named by --db.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/repograph/internal/config"
)

var (
	// DbPath is the graph database path, set by the global --db flag.
	DbPath string
	// ConfigPath is an optional YAML config path, set by --config.
	ConfigPath string
	// Verbose enables debug logging.
	Verbose bool
)

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(retrieveCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(viewCmd())
}

func loadConfig() (*config.Config, error) {
	return config.Load(ConfigPath)
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// free for command output and the MCP protocol.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
