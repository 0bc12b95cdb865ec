package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/repograph/internal/export"
)

func exportCmd() *cobra.Command {
	var outputFile string
	var format string
	var projectName string
	var noImports bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored graph as a document",
		Long: `Render the persisted repository graph as Markdown (a structure report
suitable as AI coding context) or Graphviz DOT.

Examples:
  repograph export -o structure.md
  repograph export --format dot -o graph.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph()
			if err != nil {
				return err
			}

			exporter := export.NewExporter(g)
			opts := export.DefaultOptions()
			opts.IncludeImports = !noImports
			if projectName != "" {
				opts.ProjectName = projectName
			}

			var w *os.File
			if outputFile == "" || outputFile == "-" {
				w = os.Stdout
			} else {
				w, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer w.Close()
			}

			switch format {
			case "markdown", "md":
				return exporter.WriteMarkdown(w, opts)
			case "dot":
				return exporter.WriteDOT(w, opts)
			default:
				return fmt.Errorf("unknown format %q (want markdown or dot)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown or dot")
	cmd.Flags().StringVar(&projectName, "name", "", "project name for the document header")
	cmd.Flags().BoolVar(&noImports, "no-imports", false, "omit import nodes and edges")

	return cmd
}
