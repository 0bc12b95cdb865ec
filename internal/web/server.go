// Package web serves the repository graph over HTTP: a JSON API for
// the graph, retrieval and stats, plus an embedded single-page viewer.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"

	"github.com/zheng/repograph/internal/graph"
	"github.com/zheng/repograph/internal/retrieve"
)

//go:embed static/*
var staticFS embed.FS

// Server is the web server for exploring a repository graph.
type Server struct {
	g    *graph.Graph
	retr *retrieve.Retriever
	port int
	log  *slog.Logger
}

// NewServer creates a web server over a built graph.
func NewServer(g *graph.Graph, retr *retrieve.Retriever, port int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{g: g, retr: retr, port: port, log: log}
}

// StatsData is the /api/stats payload.
type StatsData struct {
	NodeCount int            `json:"nodeCount"`
	EdgeCount int            `json:"edgeCount"`
	FileCount int            `json:"fileCount"`
	Types     map[string]int `json:"types"`
}

// EntityDetail is the /api/entity payload: one entity with its
// immediate neighborhood.
type EntityDetail struct {
	Entity    *graph.Entity    `json:"entity"`
	Neighbors []*graph.Entity  `json:"neighbors"`
	Relations []graph.Relation `json:"relations"`
}

// Run starts the web server
func (s *Server) Run() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/entities", s.handleEntities)
	mux.HandleFunc("/api/entity", s.handleEntity)
	mux.HandleFunc("/api/retrieve", s.handleRetrieve)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/stats", s.handleStats)

	// Static files
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("loading static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticContent)))

	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("web ui listening", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, mux)
}

// handleGraph returns the complete graph in transport form.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, graph.Encode(s.g))
}

// handleEntities returns all entities, optionally filtered by type or
// file path.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	file := r.URL.Query().Get("file")

	out := make([]*graph.Entity, 0)
	for _, e := range s.g.Entities() {
		if typ != "" && string(e.Type) != typ {
			continue
		}
		if file != "" && e.FilePath != file {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, out)
}

// handleEntity returns one entity with its undirected neighborhood.
func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id parameter", http.StatusBadRequest)
		return
	}
	e := s.g.Entity(id)
	if e == nil {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}

	ids := map[string]struct{}{id: {}}
	var neighbors []*graph.Entity
	for _, n := range s.g.Neighbors(id) {
		ids[n] = struct{}{}
		neighbors = append(neighbors, s.g.Entity(n))
	}

	writeJSON(w, EntityDetail{
		Entity:    e,
		Neighbors: neighbors,
		Relations: s.g.InducedRelations(ids),
	})
}

// handleRetrieve runs anchor-based retrieval. POST with a JSON
// retrieve.Request body.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req retrieve.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, s.retr.Retrieve(req))
}

// handleSearch matches entities by name substring, case preserved the
// way anchor location does it.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("q")
	if pattern == "" {
		writeJSON(w, []*graph.Entity{})
		return
	}

	loc := retrieve.NewLocator(0, nil)
	ids := loc.LocateAnchors(s.g, []string{pattern}, nil, nil)

	out := make([]*graph.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.g.Entity(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, out)
}

// handleStats returns graph statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	types := make(map[string]int)
	for _, e := range s.g.Entities() {
		types[string(e.Type)]++
	}
	writeJSON(w, StatsData{
		NodeCount: s.g.NodeCount(),
		EdgeCount: s.g.EdgeCount(),
		FileCount: len(s.g.FilePaths()),
		Types:     types,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(data)
}
