package retrieve

import (
	"sort"

	"github.com/zheng/repograph/internal/graph"
)

// Default expansion bounds.
const (
	DefaultMaxDepth = 2
	DefaultNodeCap  = 100
)

// Subgraph is a read-only projection of the repository graph around a
// set of anchors.
type Subgraph struct {
	Nodes    []*graph.Entity  `json:"nodes"`
	Edges    []graph.Relation `json:"edges"`
	Anchors  []string         `json:"anchors"`
	MaxDepth int              `json:"max_depth"`
	NodeCap  int              `json:"node_cap"`
}

// NodeCount returns the number of nodes in the projection.
func (s *Subgraph) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges in the projection.
func (s *Subgraph) EdgeCount() int { return len(s.Edges) }

// FilePaths returns the sorted distinct file paths the subgraph touches.
func (s *Subgraph) FilePaths() []string {
	seen := make(map[string]struct{})
	for _, e := range s.Nodes {
		if e.FilePath != "" {
			seen[e.FilePath] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Flat renders the subgraph in graph transport form.
func (s *Subgraph) Flat() *graph.Flat {
	types := make(map[string]struct{})
	for _, e := range s.Nodes {
		types[string(e.Type)] = struct{}{}
	}
	distinct := make([]string, 0, len(types))
	for t := range types {
		distinct = append(distinct, t)
	}
	sort.Strings(distinct)

	nodes := s.Nodes
	if nodes == nil {
		nodes = []*graph.Entity{}
	}
	edges := s.Edges
	if edges == nil {
		edges = []graph.Relation{}
	}
	return &graph.Flat{
		Nodes: nodes,
		Edges: edges,
		Metadata: graph.Metadata{
			NodeCount:     len(nodes),
			EdgeCount:     len(edges),
			DistinctTypes: distinct,
		},
	}
}

// ExtractSubgraph expands a bounded neighborhood around the anchors:
// up to maxDepth rounds of undirected neighbor collection, pruned by
// degree centrality when the working set exceeds nodeCap. Anchors are
// always retained; the cap binds non-anchor nodes only, so a result can
// exceed nodeCap when the anchor set alone does.
func ExtractSubgraph(g *graph.Graph, anchors []string, maxDepth, nodeCap int) *Subgraph {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if nodeCap <= 0 {
		nodeCap = DefaultNodeCap
	}

	// Only anchors present in the graph seed the expansion.
	anchorSet := make(map[string]struct{})
	for _, id := range anchors {
		if g.HasEntity(id) {
			anchorSet[id] = struct{}{}
		}
	}
	sortedAnchors := make([]string, 0, len(anchorSet))
	for id := range anchorSet {
		sortedAnchors = append(sortedAnchors, id)
	}
	sort.Strings(sortedAnchors)

	sub := &Subgraph{Anchors: sortedAnchors, MaxDepth: maxDepth, NodeCap: nodeCap}
	if len(anchorSet) == 0 {
		return sub
	}

	working := make(map[string]struct{}, len(anchorSet))
	for id := range anchorSet {
		working[id] = struct{}{}
	}

	depthUsed := 0
	for depth := 0; depth < maxDepth; depth++ {
		added := false
		for _, id := range sortedIDs(working) {
			for _, n := range g.Neighbors(id) {
				if _, ok := working[n]; !ok {
					working[n] = struct{}{}
					added = true
				}
			}
		}
		depthUsed = depth + 1
		if len(working) > nodeCap {
			working = pruneByCentrality(g, working, anchorSet, nodeCap)
			break
		}
		if !added {
			break
		}
	}
	sub.MaxDepth = depthUsed

	ids := sortedIDs(working)
	sub.Nodes = make([]*graph.Entity, 0, len(ids))
	for _, id := range ids {
		sub.Nodes = append(sub.Nodes, g.Entity(id))
	}
	sub.Edges = g.InducedRelations(working)
	return sub
}

// pruneByCentrality reduces the working set to the cap by keeping the
// highest-degree nodes of the induced subgraph. Anchors are force-
// retained; ties among non-anchors break lexicographically by id so
// pruning is reproducible.
func pruneByCentrality(g *graph.Graph, working, anchors map[string]struct{}, limit int) map[string]struct{} {
	if len(working) <= limit {
		return working
	}

	deg := g.Degree(working)
	var rest []string
	for id := range working {
		if _, isAnchor := anchors[id]; !isAnchor {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if deg[rest[i]] != deg[rest[j]] {
			return deg[rest[i]] > deg[rest[j]]
		}
		return rest[i] < rest[j]
	})

	kept := make(map[string]struct{}, limit)
	for id := range anchors {
		kept[id] = struct{}{}
	}
	for _, id := range rest {
		if len(kept) >= limit {
			break
		}
		kept[id] = struct{}{}
	}
	return kept
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
