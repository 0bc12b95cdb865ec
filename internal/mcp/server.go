// Package mcp exposes the repository graph engine over the Model
// Context Protocol: newline-delimited JSON-RPC 2.0 on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zheng/repograph/internal/analyzer"
	"github.com/zheng/repograph/internal/config"
	"github.com/zheng/repograph/internal/display"
	"github.com/zheng/repograph/internal/graph"
	"github.com/zheng/repograph/internal/retrieve"
	"github.com/zheng/repograph/internal/storage"
)

// Server implements the MCP protocol for the graph engine.
type Server struct {
	cfg    *config.Config
	db     *storage.DB
	log    *slog.Logger
	input  io.Reader
	output io.Writer

	mu   sync.RWMutex
	root string
	g    *graph.Graph
	retr *retrieve.Retriever
}

// NewServer creates an MCP server on stdio. db may be nil; analyzed
// graphs are then held in memory only.
func NewServer(cfg *config.Config, db *storage.DB, log *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		db:     db,
		log:    log,
		input:  os.Stdin,
		output: os.Stdout,
	}

	// A previously persisted graph is served until the next analysis.
	if db != nil {
		if g, err := db.LoadGraph(); err == nil && g.NodeCount() > 0 {
			s.setGraph(g)
			if root, err := db.GetMeta("root"); err == nil {
				s.root = root
			}
		}
	}
	return s
}

// JSON-RPC types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP specific types
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Items       *Property   `json:"items,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run starts the MCP server loop, reading one JSON-RPC message per
// line until the input closes.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.input)
	// Increase buffer size for large messages
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(&req)
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized":
		// Notification, no response needed
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(req)
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo: ServerInfo{
			Name:    "repograph",
			Version: "1.0.0",
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{},
		},
	}
	s.sendResult(req.ID, result)
}

func (s *Server) handleToolsList(req *Request) {
	tools := []Tool{
		{
			Name:        "analyze_repository",
			Description: "Analyze a repository: extract code entities (files, classes, functions, methods, imports) and build the structural graph used by the other tools",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"repository_path": {
						Type:        "string",
						Description: "Absolute path to the repository root",
					},
					"exclude": {
						Type:        "array",
						Description: "Extra glob patterns to skip during the scan",
						Items:       &Property{Type: "string"},
					},
				},
				Required: []string{"repository_path"},
			},
		},
		{
			Name:        "retrieve_context",
			Description: "Retrieve the code context relevant to a task: locate anchor entities by name, keyword or natural-language query, then expand a bounded subgraph around them",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"entity_names": {
						Type:        "array",
						Description: "Entity names to anchor on (exact or fuzzy)",
						Items:       &Property{Type: "string"},
					},
					"keywords": {
						Type:        "array",
						Description: "Keywords matched against code previews and docs",
						Items:       &Property{Type: "string"},
					},
					"queries": {
						Type:        "array",
						Description: "Natural-language queries describing the task",
						Items:       &Property{Type: "string"},
					},
					"max_depth": {
						Type:        "number",
						Description: "Expansion depth around anchors, default 2",
						Default:     2,
					},
					"node_cap": {
						Type:        "number",
						Description: "Maximum subgraph size before centrality pruning, default 100",
						Default:     100,
					},
				},
			},
		},
		{
			Name:        "get_file_content",
			Description: "Return the source of a file from the analyzed repository together with its extracted entities",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"file_path": {
						Type:        "string",
						Description: "File path relative to the repository root",
					},
				},
				Required: []string{"file_path"},
			},
		},
		{
			Name:        "graph_stats",
			Description: "Summarize the current repository graph: node and edge counts, entity types and file coverage",
			InputSchema: InputSchema{
				Type: "object",
			},
		},
	}

	s.sendResult(req.ID, map[string]interface{}{"tools": tools})
}

func (s *Server) handleToolsCall(req *Request) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params")
		return
	}

	var result string
	var isError bool

	switch params.Name {
	case "analyze_repository":
		result, isError = s.toolAnalyze(params.Arguments)
	case "retrieve_context":
		result, isError = s.toolRetrieve(params.Arguments)
	case "get_file_content":
		result, isError = s.toolFileContent(params.Arguments)
	case "graph_stats":
		result, isError = s.toolStats()
	default:
		result = fmt.Sprintf("Unknown tool: %s", params.Name)
		isError = true
	}

	s.sendResult(req.ID, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: result}},
		IsError: isError,
	})
}

func (s *Server) toolAnalyze(args map[string]interface{}) (string, bool) {
	root, ok := args["repository_path"].(string)
	if !ok || root == "" {
		return "error: repository_path is required", true
	}

	opts := analyzer.Options{
		Workers:      s.cfg.Scan.Workers,
		MaxFileSize:  s.cfg.Scan.MaxFileSize,
		FileTimeout:  s.cfg.Scan.FileTimeout.Std(),
		ExcludeGlobs: append([]string(nil), s.cfg.Scan.ExcludeGlobs...),
	}
	opts.ExcludeGlobs = append(opts.ExcludeGlobs, toStringSlice(args["exclude"])...)

	ctx := context.Background()
	if t := s.cfg.Scan.ScanTimeout.Std(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	g, stats, err := analyzer.New(opts, s.log).Analyze(ctx, root)
	if err != nil {
		return fmt.Sprintf("error: %v", err), true
	}

	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	s.setGraph(g)

	if s.db != nil {
		if err := s.db.SaveGraph(g); err != nil {
			return fmt.Sprintf("analysis done but persisting failed: %v", err), true
		}
		_ = s.db.SetMeta("root", root)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Repository analyzed: %s\n\n", root)
	fmt.Fprintf(&sb, "- files scanned: %d (skipped %d)\n", stats.FilesScanned, stats.FilesSkipped)
	fmt.Fprintf(&sb, "- graph: %d nodes, %d edges\n", stats.Nodes, stats.Edges)
	fmt.Fprintf(&sb, "- duration: %s\n", stats.Duration.Round(0))
	if stats.Partial {
		sb.WriteString("- partial: the scan deadline expired before all files were processed\n")
	}
	return sb.String(), false
}

func (s *Server) toolRetrieve(args map[string]interface{}) (string, bool) {
	s.mu.RLock()
	g, retr := s.g, s.retr
	s.mu.RUnlock()
	if g == nil {
		return "error: no repository analyzed yet, call analyze_repository first", true
	}

	req := retrieve.Request{
		EntityNames: toStringSlice(args["entity_names"]),
		Keywords:    toStringSlice(args["keywords"]),
		Queries:     toStringSlice(args["queries"]),
		MaxDepth:    toInt(args["max_depth"], s.cfg.Retrieval.MaxDepth),
		NodeCap:     toInt(args["node_cap"], s.cfg.Retrieval.NodeCap),
	}

	resp := retr.Retrieve(req)
	sub := retrieve.ExtractSubgraph(g, resp.Anchors, req.MaxDepth, req.NodeCap)
	return display.FormatRetrieval(resp, sub), false
}

func (s *Server) toolFileContent(args map[string]interface{}) (string, bool) {
	rel, ok := args["file_path"].(string)
	if !ok || rel == "" {
		return "error: file_path is required", true
	}

	s.mu.RLock()
	root, g := s.root, s.g
	s.mu.RUnlock()
	if g == nil {
		return "error: no repository analyzed yet, call analyze_repository first", true
	}
	if !g.HasEntity(graph.FileID(rel)) {
		return fmt.Sprintf("error: %s is not part of the analyzed repository", rel), true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", rel)

	var entities []*graph.Entity
	for _, e := range g.Entities() {
		if e.FilePath == rel && e.Type != graph.TypeFile {
			entities = append(entities, e)
		}
	}
	if len(entities) > 0 {
		sb.WriteString("entities:\n")
		for _, e := range entities {
			line := e.Metadata["line_start"]
			if line != "" {
				fmt.Fprintf(&sb, "- %s %s (line %s)\n", e.Type, e.Name, line)
			} else {
				fmt.Fprintf(&sb, "- %s %s\n", e.Type, e.Name)
			}
		}
		sb.WriteString("\n")
	}

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		// The graph still knows the preview even when the file is gone.
		if file := g.Entity(graph.FileID(rel)); file != nil && file.ContentPreview != "" {
			fmt.Fprintf(&sb, "```\n%s\n```\n\n(file unreadable, showing stored preview: %v)\n", file.ContentPreview, err)
			return sb.String(), false
		}
		return fmt.Sprintf("error: reading %s: %v", rel, err), true
	}
	fmt.Fprintf(&sb, "```\n%s\n```\n", string(content))
	return sb.String(), false
}

func (s *Server) toolStats() (string, bool) {
	s.mu.RLock()
	g, root := s.g, s.root
	s.mu.RUnlock()
	if g == nil {
		return "error: no repository analyzed yet, call analyze_repository first", true
	}

	counts := make(map[string]int)
	for _, e := range g.Entities() {
		counts[string(e.Type)]++
	}

	var sb strings.Builder
	sb.WriteString("## Graph statistics\n\n")
	if root != "" {
		fmt.Fprintf(&sb, "repository: %s\n", root)
	}
	fmt.Fprintf(&sb, "nodes: %d | edges: %d | files: %d\n\n", g.NodeCount(), g.EdgeCount(), len(g.FilePaths()))
	sb.WriteString("| type | count |\n|------|-------|\n")
	for _, t := range g.DistinctTypes() {
		fmt.Fprintf(&sb, "| %s | %d |\n", t, counts[t])
	}
	return sb.String(), false
}

func (s *Server) setGraph(g *graph.Graph) {
	loc := retrieve.NewLocator(s.cfg.Retrieval.SimilarityThreshold, s.cfg.Retrieval.StopWords)
	s.mu.Lock()
	s.g = g
	s.retr = retrieve.NewRetriever(g, loc, s.log)
	s.mu.Unlock()
}

func toStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toInt(v interface{}, def int) int {
	if f, ok := v.(float64); ok && f > 0 {
		return int(f)
	}
	return def
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	s.send(resp)
}

func (s *Server) sendError(id interface{}, code int, message string) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
	s.send(resp)
}

func (s *Server) send(resp Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintln(s.output, string(data))
}
