package retrieve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/zheng/repograph/internal/graph"
)

// Request carries the retrieval signals and tuning knobs.
type Request struct {
	EntityNames []string `json:"entity_names,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Queries     []string `json:"queries,omitempty"`
	MaxDepth    int      `json:"max_depth,omitempty"`
	NodeCap     int      `json:"node_cap,omitempty"`
}

// Response is the result handed to the context-formatting layer.
type Response struct {
	TaskID        string      `json:"task_id"`
	Anchors       []string    `json:"anchors"`
	Subgraph      *graph.Flat `json:"subgraph"`
	RelevantFiles []string    `json:"relevant_files"`
	Summary       string      `json:"summary"`
}

// Retriever runs anchor location and subgraph extraction against one
// immutable graph snapshot.
type Retriever struct {
	g   *graph.Graph
	loc *Locator
	log *slog.Logger
}

// NewRetriever creates a retriever over a fully built graph.
func NewRetriever(g *graph.Graph, loc *Locator, log *slog.Logger) *Retriever {
	if loc == nil {
		loc = NewLocator(0, nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{g: g, loc: loc, log: log}
}

// Retrieve locates anchors for the request and extracts the bounded
// subgraph around them. No matches is a valid empty result, never an
// error.
func (r *Retriever) Retrieve(req Request) *Response {
	anchors := r.loc.LocateAnchors(r.g, req.EntityNames, req.Keywords, req.Queries)
	sub := ExtractSubgraph(r.g, anchors, req.MaxDepth, req.NodeCap)

	resp := &Response{
		TaskID:        uuid.NewString(),
		Anchors:       anchors,
		Subgraph:      sub.Flat(),
		RelevantFiles: sub.FilePaths(),
		Summary:       summarize(sub),
	}
	r.log.Info("retrieval complete",
		"task_id", resp.TaskID,
		"anchors", len(anchors),
		"nodes", sub.NodeCount(),
		"edges", sub.EdgeCount())
	return resp
}

// summarize renders a short human-readable description of a retrieval
// result for downstream consumers.
func summarize(sub *Subgraph) string {
	if sub.NodeCount() == 0 {
		return "No matching code entities were found."
	}

	counts := make(map[graph.EntityType]int)
	for _, e := range sub.Nodes {
		counts[e.Type]++
	}
	var parts []string
	for _, t := range []graph.EntityType{
		graph.TypeFile, graph.TypeClass, graph.TypeInterface, graph.TypeStruct,
		graph.TypeTrait, graph.TypeEnum, graph.TypeFunction, graph.TypeMethod,
		graph.TypeModule, graph.TypeImport,
	} {
		if c := counts[t]; c > 0 {
			parts = append(parts, fmt.Sprintf("%s(%d)", t, c))
		}
	}

	return fmt.Sprintf(
		"Retrieved %d entities across %d files (%d relations, %d anchors): %s",
		sub.NodeCount(), len(sub.FilePaths()), sub.EdgeCount(), len(sub.Anchors),
		strings.Join(parts, ", "))
}
