package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zheng/repograph/internal/display"
	"github.com/zheng/repograph/internal/retrieve"
	"github.com/zheng/repograph/internal/storage"
)

func retrieveCmd() *cobra.Command {
	var entities, keywords, queries []string
	var maxDepth, nodeCap int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve a context subgraph around matching entities",
		Long: `Locate anchor entities from names, keywords or natural-language
queries, then expand a bounded subgraph around them.

Examples:
  repograph retrieve --entity UserService
  repograph retrieve --keyword auth --keyword session --depth 3
  repograph retrieve --query "how does login work" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(entities) == 0 && len(keywords) == 0 && len(queries) == 0 {
				return fmt.Errorf("at least one of --entity, --keyword or --query is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, err := loadGraph()
			if err != nil {
				return err
			}

			if maxDepth == 0 {
				maxDepth = cfg.Retrieval.MaxDepth
			}
			if nodeCap == 0 {
				nodeCap = cfg.Retrieval.NodeCap
			}

			retr := newRetriever(g, cfg)
			resp := retr.Retrieve(retrieve.Request{
				EntityNames: entities,
				Keywords:    keywords,
				Queries:     queries,
				MaxDepth:    maxDepth,
				NodeCap:     nodeCap,
			})

			if asJSON {
				return outputJSON(resp)
			}

			sub := retrieve.ExtractSubgraph(g, resp.Anchors, maxDepth, nodeCap)
			fmt.Print(display.FormatRetrieval(resp, sub))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&entities, "entity", "e", nil, "entity name to anchor on (repeatable)")
	cmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "keyword to anchor on (repeatable)")
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "natural-language query (repeatable)")
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "expansion depth (default from config)")
	cmd.Flags().IntVar(&nodeCap, "cap", 0, "subgraph node cap (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw retrieval response as JSON")

	return cmd
}

func searchCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search stored entities by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			entities, err := db.FindEntitiesByPattern(args[0], limit)
			if err != nil {
				return fmt.Errorf("searching entities: %w", err)
			}

			if asJSON {
				return outputJSON(entities)
			}
			fmt.Print(display.FormatEntityList(entities))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for the stored graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(DbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			nodes, edges, err := db.GetStats()
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}
			types, err := db.TypeCounts()
			if err != nil {
				return fmt.Errorf("reading type counts: %w", err)
			}

			if asJSON {
				return outputJSON(map[string]any{
					"nodes": nodes,
					"edges": edges,
					"types": types,
				})
			}

			fmt.Printf("database: %s\n", DbPath)
			fmt.Printf("nodes: %d\nedges: %d\n\n", nodes, edges)

			names := make([]string, 0, len(types))
			for t := range types {
				names = append(names, t)
			}
			sort.Strings(names)
			for _, t := range names {
				fmt.Printf("  %-10s %d\n", t, types[t])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")

	return cmd
}
