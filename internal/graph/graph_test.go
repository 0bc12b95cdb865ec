package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityID(t *testing.T) {
	tests := []struct {
		typ  EntityType
		path string
		name string
		want string
	}{
		{TypeFile, "a/b.py", "", "file:a/b.py"},
		{TypeClass, "a/b.py", "Foo", "class:a/b.py:Foo"},
		{TypeMethod, "a/b.py", "bar", "method:a/b.py:bar"},
		{TypeFunction, "a/b.py", "baz", "function:a/b.py:baz"},
		{TypeImport, "", "os", "import:os"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EntityID(tt.typ, tt.path, tt.name))
	}
}

func TestAddEntityFirstWriterWins(t *testing.T) {
	g := New()
	first := &Entity{ID: "class:a.py:Foo", Type: TypeClass, Name: "Foo"}
	second := &Entity{ID: "class:a.py:Foo", Type: TypeClass, Name: "Other"}

	assert.True(t, g.AddEntity(first))
	assert.False(t, g.AddEntity(second))
	assert.Equal(t, "Foo", g.Entity("class:a.py:Foo").Name)
}

func TestAddRelationIdempotent(t *testing.T) {
	g := New()
	g.AddEntity(&Entity{ID: "a", Type: TypeFile})
	g.AddEntity(&Entity{ID: "b", Type: TypeClass})

	r := Relation{SourceID: "a", TargetID: "b", Kind: RelationContains}
	assert.True(t, g.AddRelation(r))
	assert.False(t, g.AddRelation(r))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestAddRelationUnknownEndpoint(t *testing.T) {
	g := New()
	g.AddEntity(&Entity{ID: "a", Type: TypeFile})

	ok := g.AddRelation(Relation{SourceID: "a", TargetID: "missing", Kind: RelationContains})
	assert.False(t, ok)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestNeighborsUndirected(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddEntity(&Entity{ID: id, Type: TypeFile})
	}
	g.AddRelation(Relation{SourceID: "a", TargetID: "b", Kind: RelationContains})
	g.AddRelation(Relation{SourceID: "c", TargetID: "a", Kind: RelationContains})

	// b reached by outgoing edge, c by incoming edge
	assert.Equal(t, []string{"b", "c"}, g.Neighbors("a"))
}

func TestDegreeInduced(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddEntity(&Entity{ID: id, Type: TypeFile})
	}
	g.AddRelation(Relation{SourceID: "a", TargetID: "b", Kind: RelationContains})
	g.AddRelation(Relation{SourceID: "b", TargetID: "c", Kind: RelationContains})

	// c excluded from the induced set: the b->c edge must not count
	ids := map[string]struct{}{"a": {}, "b": {}}
	deg := g.Degree(ids)
	assert.Equal(t, 1, deg["a"])
	assert.Equal(t, 1, deg["b"])
}

func singleFileResult() FileResult {
	path := "a.py"
	return FileResult{
		Path: path,
		Entities: []*Entity{
			{ID: FileID(path), Type: TypeFile, Name: "a.py", FilePath: path},
			{ID: EntityID(TypeClass, path, "Foo"), Type: TypeClass, Name: "Foo", FilePath: path},
			{ID: EntityID(TypeMethod, path, "bar"), Type: TypeMethod, Name: "bar", FilePath: path},
			{ID: EntityID(TypeFunction, path, "baz"), Type: TypeFunction, Name: "baz", FilePath: path},
		},
		Relations: []Relation{
			{SourceID: EntityID(TypeClass, path, "Foo"), TargetID: EntityID(TypeMethod, path, "bar"), Kind: RelationContains},
		},
		Imports: []string{"os"},
	}
}

func TestAssembleSingleFile(t *testing.T) {
	g := Assemble([]FileResult{singleFileResult()})

	for _, id := range []string{
		"file:a.py",
		"class:a.py:Foo",
		"method:a.py:bar",
		"function:a.py:baz",
		"import:os",
	} {
		assert.True(t, g.HasEntity(id), "missing %s", id)
	}
	assert.Equal(t, 5, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())

	// method hangs off the class, not the file
	assert.Equal(t, []string{"file:a.py", "method:a.py:bar"}, g.Neighbors("class:a.py:Foo"))
	assert.Equal(t, []string{"class:a.py:Foo"}, g.Neighbors("method:a.py:bar"))
}

func TestAssembleOrderIndependent(t *testing.T) {
	a := FileResult{
		Path: "a.py",
		Entities: []*Entity{
			{ID: "file:a.py", Type: TypeFile, Name: "a.py", FilePath: "a.py"},
		},
		Imports: []string{"os"},
	}
	b := FileResult{
		Path: "b.py",
		Entities: []*Entity{
			{ID: "file:b.py", Type: TypeFile, Name: "b.py", FilePath: "b.py"},
		},
		Imports: []string{"os"},
	}

	g1 := Assemble([]FileResult{a, b})
	g2 := Assemble([]FileResult{b, a})

	assert.Equal(t, g1.NodeIDs(), g2.NodeIDs())
	assert.Equal(t, g1.EdgeCount(), g2.EdgeCount())

	// the shared import converged on one node
	assert.Equal(t, []string{"file:a.py", "file:b.py"}, g1.Neighbors("import:os"))
}

func TestAssembleDuplicateImportsDeduplicated(t *testing.T) {
	res := FileResult{
		Path: "a.py",
		Entities: []*Entity{
			{ID: "file:a.py", Type: TypeFile, Name: "a.py", FilePath: "a.py"},
		},
		Imports: []string{"os", "os", "sys"},
	}
	g := Assemble([]FileResult{res})

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := Assemble([]FileResult{singleFileResult()})

	flat := Encode(g)
	require.Equal(t, g.NodeCount(), flat.Metadata.NodeCount)
	require.Equal(t, g.EdgeCount(), flat.Metadata.EdgeCount)
	assert.Contains(t, flat.Metadata.DistinctTypes, "class")

	back := Decode(flat)
	assert.Equal(t, g.NodeIDs(), back.NodeIDs())
	assert.Equal(t, g.EdgeCount(), back.EdgeCount())

	for _, id := range g.NodeIDs() {
		assert.Equal(t, g.Entity(id), back.Entity(id))
	}
}

func TestDecodeDropsDanglingEdges(t *testing.T) {
	flat := &Flat{
		Nodes: []*Entity{
			{ID: "file:a.py", Type: TypeFile, Name: "a.py", FilePath: "a.py"},
		},
		Edges: []Relation{
			{SourceID: "file:a.py", TargetID: "class:a.py:Gone", Kind: RelationContains},
		},
	}
	g := Decode(flat)
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestEncodeEmptyGraph(t *testing.T) {
	flat := Encode(New())
	assert.NotNil(t, flat.Nodes)
	assert.NotNil(t, flat.Edges)
	assert.Equal(t, 0, flat.Metadata.NodeCount)
}
