package graph

// Flat is the transport form of a graph: plain node and edge lists plus
// summary metadata. It is what crosses process boundaries (MCP, web, export)
// and what subgraph projections are rendered as.
type Flat struct {
	Nodes    []*Entity  `json:"nodes"`
	Edges    []Relation `json:"edges"`
	Metadata Metadata   `json:"metadata"`
}

// Metadata summarizes a flat graph.
type Metadata struct {
	NodeCount     int      `json:"node_count"`
	EdgeCount     int      `json:"edge_count"`
	DistinctTypes []string `json:"distinct_types"`
}

// Encode converts a graph to its transport form. Nodes are ordered by id
// so the encoding is stable across runs.
func Encode(g *Graph) *Flat {
	f := &Flat{
		Nodes: g.Entities(),
		Edges: g.Relations(),
	}
	f.Metadata = Metadata{
		NodeCount:     len(f.Nodes),
		EdgeCount:     len(f.Edges),
		DistinctTypes: g.DistinctTypes(),
	}
	if f.Nodes == nil {
		f.Nodes = []*Entity{}
	}
	if f.Edges == nil {
		f.Edges = []Relation{}
	}
	return f
}

// Decode rebuilds a graph from its transport form. Edges referencing ids
// absent from the node list are dropped silently: subgraph projections
// intentionally omit out-of-scope nodes.
func Decode(f *Flat) *Graph {
	g := New()
	if f == nil {
		return g
	}
	for _, e := range f.Nodes {
		g.AddEntity(e)
	}
	for _, r := range f.Edges {
		g.AddRelation(r)
	}
	return g
}
