package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/repograph/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repograph",
		Short: "Repository structure graph analyzer",
		Long: `repograph builds a structural graph of a source repository: files,
classes, functions, methods and imports, linked by containment and
import edges. The graph backs context retrieval for AI coding
assistants over the CLI, a web UI or MCP.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cmd.DbPath, "db", "d", ".repograph.db", "graph database path")
	rootCmd.PersistentFlags().StringVarP(&cmd.ConfigPath, "config", "c", "", "YAML config path")
	rootCmd.PersistentFlags().BoolVarP(&cmd.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
