package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zheng/repograph/internal/analyzer"
	"github.com/zheng/repograph/internal/storage"
)

func analyzeCmd() *cobra.Command {
	var outputPath string
	var excludes []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [repo-path]",
		Short: "Scan a repository and build its structure graph",
		Long: `Walk the repository tree, extract code entities from every supported
source file and persist the resulting graph to the database.

Examples:
  repograph analyze .
  repograph analyze ~/src/myproject -o myproject.db
  repograph analyze . --exclude '*_test.py' --exclude 'migrations/*'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoPath := "."
			if len(args) > 0 {
				repoPath = args[0]
			}

			if outputPath != "" {
				DbPath = outputPath
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Scan.ExcludeGlobs = append(cfg.Scan.ExcludeGlobs, excludes...)

			a := analyzer.New(analyzer.Options{
				Workers:      cfg.Scan.Workers,
				MaxFileSize:  cfg.Scan.MaxFileSize,
				FileTimeout:  cfg.Scan.FileTimeout.Std(),
				ExcludeGlobs: cfg.Scan.ExcludeGlobs,
			}, newLogger())

			ctx := cmd.Context()
			if timeout := cfg.Scan.ScanTimeout.Std(); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			g, stats, err := a.Analyze(ctx, repoPath)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			if err := db.SaveGraph(g); err != nil {
				return fmt.Errorf("saving graph: %w", err)
			}
			if err := db.SetMeta("root", repoPath); err != nil {
				return fmt.Errorf("recording repository root: %w", err)
			}

			if asJSON {
				return outputJSON(stats)
			}

			fmt.Printf("scanned %d files (%d skipped) in %v\n",
				stats.FilesScanned, stats.FilesSkipped, stats.Duration)
			fmt.Printf("graph: %d nodes, %d edges\n", stats.Nodes, stats.Edges)
			if stats.Partial {
				fmt.Println("warning: scan hit the time budget, graph is partial")
			}
			fmt.Printf("saved to %s\n", DbPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output database path (overrides --db)")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "extra glob patterns to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print scan stats as JSON")

	return cmd
}
