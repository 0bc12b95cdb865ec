package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zheng/repograph/internal/config"
	"github.com/zheng/repograph/internal/graph"
	"github.com/zheng/repograph/internal/retrieve"
	"github.com/zheng/repograph/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadGraph reads the persisted graph from the database at DbPath.
func loadGraph() (*graph.Graph, error) {
	db, err := storage.Open(DbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", DbPath, err)
	}
	defer db.Close()

	g, err := db.LoadGraph()
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return g, nil
}

// newRetriever builds a retriever over g using the config's matching
// knobs.
func newRetriever(g *graph.Graph, cfg *config.Config) *retrieve.Retriever {
	loc := retrieve.NewLocator(cfg.Retrieval.SimilarityThreshold, cfg.Retrieval.StopWords)
	return retrieve.NewRetriever(g, loc, newLogger())
}
