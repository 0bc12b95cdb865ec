package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zheng/repograph/internal/analyzer"
	"github.com/zheng/repograph/internal/mcp"
	"github.com/zheng/repograph/internal/storage"
	"github.com/zheng/repograph/internal/watcher"
	"github.com/zheng/repograph/internal/web"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server on stdio",
		Long: `Start an MCP server so AI assistants can analyze repositories and
retrieve code context directly.

Tools exposed:
  - analyze_repository: scan a repository and build its graph
  - retrieve_context: fetch a context subgraph for names, keywords or queries
  - get_file_content: list and read an analyzed file
  - graph_stats: summarize the current graph`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			server := mcp.NewServer(cfg, db, newLogger())
			return server.Run()
		},
	}

	return cmd
}

func watchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch [repo-path]",
		Short: "Watch a repository and keep its graph up to date",
		Long: `Run an initial analysis, then watch the repository for source file
changes and rebuild the graph after changes settle.

Examples:
  repograph watch .
  repograph watch ~/src/myproject --debounce 1000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath := "."
			if len(args) > 0 {
				repoPath = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a := analyzer.New(analyzer.Options{
				Workers:      cfg.Scan.Workers,
				MaxFileSize:  cfg.Scan.MaxFileSize,
				FileTimeout:  cfg.Scan.FileTimeout.Std(),
				ExcludeGlobs: cfg.Scan.ExcludeGlobs,
			}, newLogger())

			fmt.Println("running initial analysis...")
			stats, err := runInitialAnalysis(a, repoPath, DbPath)
			if err != nil {
				return fmt.Errorf("initial analysis failed: %w", err)
			}
			fmt.Printf("initial analysis done: %d nodes, %d edges\n", stats.Nodes, stats.Edges)

			fmt.Printf("\nwatching: %s\n", repoPath)
			fmt.Printf("database: %s\n", DbPath)
			fmt.Printf("debounce: %dms\n", debounceMs)
			fmt.Println("\npress Ctrl+C to stop...")
			fmt.Println()

			w, err := watcher.New(
				repoPath,
				DbPath,
				a,
				watcher.WithDebounceDelay(time.Duration(debounceMs)*time.Millisecond),
				watcher.WithOnAnalysisStart(func() {
					fmt.Printf("[%s] change detected, reanalyzing...\n", time.Now().Format("15:04:05"))
				}),
				watcher.WithOnAnalysisDone(func(stats analyzer.Stats) {
					fmt.Printf("[%s] analysis done: %d nodes, %d edges (%v)\n",
						time.Now().Format("15:04:05"), stats.Nodes, stats.Edges,
						stats.Duration.Round(time.Millisecond))
				}),
				watcher.WithOnError(func(err error) {
					fmt.Fprintf(os.Stderr, "[%s] error: %v\n", time.Now().Format("15:04:05"), err)
				}),
			)
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}

			w.Start()
			defer w.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			fmt.Println("\nstopping...")
			return nil
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce delay in milliseconds")

	return cmd
}

func runInitialAnalysis(a *analyzer.Analyzer, repoPath, dbPath string) (analyzer.Stats, error) {
	g, stats, err := a.Analyze(context.Background(), repoPath)
	if err != nil {
		return stats, err
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return stats, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.SaveGraph(g); err != nil {
		return stats, fmt.Errorf("saving graph: %w", err)
	}
	if err := db.SetMeta("root", repoPath); err != nil {
		return stats, fmt.Errorf("recording repository root: %w", err)
	}
	return stats, nil
}

func viewCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:     "view",
		Aliases: []string{"serve"},
		Short:   "Start the web UI for exploring the graph",
		Long: `Start a local web server with a browser UI over the stored graph:
entity search, neighborhood inspection and retrieval.

Examples:
  repograph view              # default port 9998
  repograph view -p 3000      # custom port`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, err := loadGraph()
			if err != nil {
				return err
			}

			server := web.NewServer(g, newRetriever(g, cfg), port, newLogger())
			return server.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 9998, "server port")

	return cmd
}
