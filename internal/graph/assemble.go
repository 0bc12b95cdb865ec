package graph

import "sort"

// FileResult is the immutable per-file output of entity extraction.
// Entities always starts with the file entity. Relations carry containment
// between entities of the same file (class-like parent to method).
// Imports lists distinct imported symbols; the synthetic import entities
// are created during assembly so they can be shared across files.
type FileResult struct {
	Path      string
	Entities  []*Entity
	Relations []Relation
	Imports   []string
}

// Assemble folds per-file extraction results into one graph. The fold is
// commutative over input order: results are processed sorted by path and
// every insert is idempotent, so the final graph does not depend on the
// order extraction workers finished in.
func Assemble(results []FileResult) *Graph {
	sorted := make([]FileResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	g := New()
	for _, res := range sorted {
		addFileResult(g, res)
	}
	return g
}

func addFileResult(g *Graph, res FileResult) {
	for _, e := range res.Entities {
		g.AddEntity(e)
	}

	// Entities that already have a containment parent within this file
	// (methods under their class-like parent).
	contained := make(map[string]struct{})
	for _, r := range res.Relations {
		if r.Kind == RelationContains {
			contained[r.TargetID] = struct{}{}
		}
		g.AddRelation(r)
	}

	// Remaining entities are top level: contained directly by the file.
	fileID := FileID(res.Path)
	for _, e := range res.Entities {
		if e.ID == fileID {
			continue
		}
		if _, ok := contained[e.ID]; ok {
			continue
		}
		g.AddRelation(Relation{SourceID: fileID, TargetID: e.ID, Kind: RelationContains})
	}

	// Synthetic import nodes, check-before-insert so re-imports across
	// files converge on one node.
	imports := make([]string, len(res.Imports))
	copy(imports, res.Imports)
	sort.Strings(imports)
	for _, name := range imports {
		if name == "" {
			continue
		}
		id := ImportID(name)
		if !g.HasEntity(id) {
			g.AddEntity(&Entity{
				ID:   id,
				Type: TypeImport,
				Name: name,
			})
		}
		g.AddRelation(Relation{SourceID: fileID, TargetID: id, Kind: RelationImports})
	}
}
