package graph

import "sort"

// Graph is a directed multigraph of code entities keyed by entity id.
// It indexes adjacency in both directions so undirected neighbor lookups
// do not have to rescan the edge list.
type Graph struct {
	nodes   map[string]*Entity
	edges   []Relation
	edgeSet map[string]struct{}
	out     map[string][]string
	in      map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*Entity),
		edgeSet: make(map[string]struct{}),
		out:     make(map[string][]string),
		in:      make(map[string][]string),
	}
}

// AddEntity inserts an entity if its id is not already present.
// Existing entities are never overwritten: the first writer wins, which
// keeps ids stable for the lifetime of one build.
func (g *Graph) AddEntity(e *Entity) bool {
	if e == nil || e.ID == "" {
		return false
	}
	if _, ok := g.nodes[e.ID]; ok {
		return false
	}
	g.nodes[e.ID] = e
	return true
}

// AddRelation inserts a directed edge. Duplicate identical relations are
// idempotent. Edges referencing unknown entities are rejected.
func (g *Graph) AddRelation(r Relation) bool {
	if _, ok := g.nodes[r.SourceID]; !ok {
		return false
	}
	if _, ok := g.nodes[r.TargetID]; !ok {
		return false
	}
	if _, ok := g.edgeSet[r.key()]; ok {
		return false
	}
	g.edgeSet[r.key()] = struct{}{}
	g.edges = append(g.edges, r)
	g.out[r.SourceID] = append(g.out[r.SourceID], r.TargetID)
	g.in[r.TargetID] = append(g.in[r.TargetID], r.SourceID)
	return true
}

// Entity returns the entity with the given id, or nil.
func (g *Graph) Entity(id string) *Entity {
	return g.nodes[id]
}

// HasEntity reports whether an entity with the given id exists.
func (g *Graph) HasEntity(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeCount returns the number of entities.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct relations.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeIDs returns all entity ids in lexicographic order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entities returns all entities ordered by id.
func (g *Graph) Entities() []*Entity {
	ids := g.NodeIDs()
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.nodes[id])
	}
	return out
}

// Relations returns all relations in insertion order.
func (g *Graph) Relations() []Relation {
	out := make([]Relation, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the undirected neighbors of a node: every node reached
// by an outgoing or incoming edge, deduplicated, in lexicographic order.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]struct{})
	for _, t := range g.out[id] {
		seen[t] = struct{}{}
	}
	for _, s := range g.in[id] {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// InducedRelations returns the relations whose both endpoints are in ids.
func (g *Graph) InducedRelations(ids map[string]struct{}) []Relation {
	var out []Relation
	for _, r := range g.edges {
		if _, ok := ids[r.SourceID]; !ok {
			continue
		}
		if _, ok := ids[r.TargetID]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Degree returns the number of incident edges for each node in ids,
// counting only edges inside the induced subgraph on ids.
func (g *Graph) Degree(ids map[string]struct{}) map[string]int {
	deg := make(map[string]int, len(ids))
	for id := range ids {
		deg[id] = 0
	}
	for _, r := range g.InducedRelations(ids) {
		deg[r.SourceID]++
		deg[r.TargetID]++
	}
	return deg
}

// FilePaths returns the sorted set of file paths covered by the graph's
// file entities.
func (g *Graph) FilePaths() []string {
	var paths []string
	for _, e := range g.nodes {
		if e.Type == TypeFile {
			paths = append(paths, e.FilePath)
		}
	}
	sort.Strings(paths)
	return paths
}

// DistinctTypes returns the sorted set of entity types present.
func (g *Graph) DistinctTypes() []string {
	seen := make(map[string]struct{})
	for _, e := range g.nodes {
		seen[string(e.Type)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
