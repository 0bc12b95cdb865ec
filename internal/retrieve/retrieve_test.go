package retrieve

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/repograph/internal/graph"
)

// moduleGraph builds the canonical single-file graph: a.py with class
// Foo, method bar, function baz and an os import.
func moduleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.AddEntity(&graph.Entity{
		ID: "file:a.py", Type: graph.TypeFile, Name: "a.py", FilePath: "a.py",
		ContentPreview: "import os\n\nclass Foo:\n    def bar(self): ...",
	})
	g.AddEntity(&graph.Entity{
		ID: "class:a.py:Foo", Type: graph.TypeClass, Name: "Foo", FilePath: "a.py",
		Doc: "Authentication helper for login sessions.",
	})
	g.AddEntity(&graph.Entity{ID: "method:a.py:bar", Type: graph.TypeMethod, Name: "bar", FilePath: "a.py"})
	g.AddEntity(&graph.Entity{ID: "function:a.py:baz", Type: graph.TypeFunction, Name: "baz", FilePath: "a.py"})
	g.AddEntity(&graph.Entity{ID: "import:os", Type: graph.TypeImport, Name: "os"})

	require.True(t, g.AddRelation(graph.Relation{SourceID: "file:a.py", TargetID: "class:a.py:Foo", Kind: graph.RelationContains}))
	require.True(t, g.AddRelation(graph.Relation{SourceID: "class:a.py:Foo", TargetID: "method:a.py:bar", Kind: graph.RelationContains}))
	require.True(t, g.AddRelation(graph.Relation{SourceID: "file:a.py", TargetID: "function:a.py:baz", Kind: graph.RelationContains}))
	require.True(t, g.AddRelation(graph.Relation{SourceID: "file:a.py", TargetID: "import:os", Kind: graph.RelationImports}))
	return g
}

func TestLocateAnchorsByEntityName(t *testing.T) {
	g := moduleGraph(t)
	loc := NewLocator(0, nil)

	anchors := loc.LocateAnchors(g, []string{"Foo"}, nil, nil)
	assert.Equal(t, []string{"class:a.py:Foo"}, anchors)
}

func TestLocateAnchorsByFilePath(t *testing.T) {
	g := moduleGraph(t)
	loc := NewLocator(0, nil)

	anchors := loc.LocateAnchors(g, []string{"a.py"}, nil, nil)
	// Every entity of the file carries the path in its id or FilePath.
	assert.Contains(t, anchors, "file:a.py")
	assert.Contains(t, anchors, "class:a.py:Foo")
	assert.NotContains(t, anchors, "import:os")
}

func TestLocateAnchorsFuzzyName(t *testing.T) {
	g := moduleGraph(t)
	loc := NewLocator(0, nil)

	// "Fooo" vs "Foo" scores 75, above the default threshold of 70.
	anchors := loc.LocateAnchors(g, []string{"Fooo"}, nil, nil)
	assert.Equal(t, []string{"class:a.py:Foo"}, anchors)

	// A stricter threshold rejects the same pair.
	strict := NewLocator(80, nil)
	assert.Empty(t, strict.LocateAnchors(g, []string{"Fooo"}, nil, nil))
}

func TestLocateAnchorsKeywordCaseInsensitive(t *testing.T) {
	g := moduleGraph(t)
	loc := NewLocator(0, nil)

	upper := loc.LocateAnchors(g, nil, []string{"AUTH"}, nil)
	lower := loc.LocateAnchors(g, nil, []string{"auth"}, nil)
	assert.Equal(t, lower, upper)
	assert.Contains(t, upper, "class:a.py:Foo")
}

func TestLocateAnchorsQueryTermFraction(t *testing.T) {
	g := moduleGraph(t)
	loc := NewLocator(0, nil)

	// Stop words drop out; one of three remaining terms hitting the doc
	// text clears the 30% bar.
	anchors := loc.LocateAnchors(g, nil, nil, []string{"how does the authentication flow work"})
	assert.Contains(t, anchors, "class:a.py:Foo")

	// A query of nothing but stop words and short tokens matches nothing.
	assert.Empty(t, loc.LocateAnchors(g, nil, nil, []string{"is it the an of"}))
}

func TestLocateAnchorsNoInputs(t *testing.T) {
	g := moduleGraph(t)
	loc := NewLocator(0, nil)
	assert.Empty(t, loc.LocateAnchors(g, nil, nil, nil))
	assert.Empty(t, loc.LocateAnchors(g, []string{""}, []string{""}, []string{""}))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, ratio("foo", "foo"))
	assert.Equal(t, 0, ratio("", "abc"))
	assert.Equal(t, 100, ratio("", ""))
	assert.Equal(t, 57, ratio("kitten", "sitting"))
	assert.Equal(t, 75, ratio("fooo", "foo"))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein([]rune("same"), []rune("same")))
	assert.Equal(t, 4, levenshtein([]rune(""), []rune("four")))
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 1, levenshtein([]rune("graph"), []rune("grape")))
}

func TestExtractSubgraphDepthOne(t *testing.T) {
	g := moduleGraph(t)

	sub := ExtractSubgraph(g, []string{"class:a.py:Foo"}, 1, 0)

	ids := make([]string, 0, len(sub.Nodes))
	for _, e := range sub.Nodes {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"class:a.py:Foo", "file:a.py", "method:a.py:bar"}, ids)
	// The import sits two hops away and stays out at depth 1.
	assert.Len(t, sub.Edges, 2)
}

func TestExtractSubgraphDepthTwo(t *testing.T) {
	g := moduleGraph(t)

	sub := ExtractSubgraph(g, []string{"class:a.py:Foo"}, 2, 0)
	assert.Equal(t, 5, sub.NodeCount())
	assert.Equal(t, 4, sub.EdgeCount())
	assert.Equal(t, []string{"a.py"}, sub.FilePaths())
}

func TestExtractSubgraphEmptyAnchors(t *testing.T) {
	g := moduleGraph(t)

	sub := ExtractSubgraph(g, nil, 0, 0)
	assert.Zero(t, sub.NodeCount())
	assert.Zero(t, sub.EdgeCount())

	// Anchors absent from the graph are ignored.
	sub = ExtractSubgraph(g, []string{"class:a.py:Missing"}, 0, 0)
	assert.Zero(t, sub.NodeCount())
}

// starGraph builds a hub with n spokes for pruning tests.
func starGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.AddEntity(&graph.Entity{ID: "hub", Type: graph.TypeClass, Name: "hub"})
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("leaf%02d", i)
		g.AddEntity(&graph.Entity{ID: id, Type: graph.TypeFunction, Name: id})
		require.True(t, g.AddRelation(graph.Relation{SourceID: "hub", TargetID: id, Kind: graph.RelationContains}))
	}
	return g
}

func TestExtractSubgraphPruningKeepsAnchorsAndHighDegree(t *testing.T) {
	g := starGraph(t, 10)

	sub := ExtractSubgraph(g, []string{"leaf01"}, 3, 3)

	ids := make([]string, 0, len(sub.Nodes))
	for _, e := range sub.Nodes {
		ids = append(ids, e.ID)
	}
	// The anchor survives, the hub wins on degree, and the remaining slot
	// goes to the lexicographically smallest leaf.
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, "leaf01")
	assert.Contains(t, ids, "hub")
	assert.Contains(t, ids, "leaf02")
}

func TestExtractSubgraphAnchorsExceedCap(t *testing.T) {
	g := graph.New()
	var anchors []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("node%d", i)
		g.AddEntity(&graph.Entity{ID: id, Type: graph.TypeFunction, Name: id})
		anchors = append(anchors, id)
	}

	sub := ExtractSubgraph(g, anchors, 2, 2)
	// The cap binds non-anchors only; the anchor set itself is never cut.
	assert.Equal(t, 5, sub.NodeCount())
}

func TestExtractSubgraphDeterministic(t *testing.T) {
	g := starGraph(t, 10)

	first := ExtractSubgraph(g, []string{"leaf01"}, 3, 3)
	for i := 0; i < 5; i++ {
		again := ExtractSubgraph(g, []string{"leaf01"}, 3, 3)
		assert.Equal(t, first.Nodes, again.Nodes)
		assert.Equal(t, first.Edges, again.Edges)
	}
}

func TestRetrieverEndToEnd(t *testing.T) {
	g := moduleGraph(t)
	r := NewRetriever(g, nil, nil)

	resp := r.Retrieve(Request{EntityNames: []string{"Foo"}})

	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, []string{"class:a.py:Foo"}, resp.Anchors)
	assert.Equal(t, []string{"a.py"}, resp.RelevantFiles)
	assert.Equal(t, resp.Subgraph.Metadata.NodeCount, len(resp.Subgraph.Nodes))
	assert.Contains(t, resp.Summary, "entities")
}

func TestRetrieverNoMatches(t *testing.T) {
	g := moduleGraph(t)
	r := NewRetriever(g, nil, nil)

	resp := r.Retrieve(Request{Queries: []string{"zzz qqq vvv"}})
	assert.Empty(t, resp.Anchors)
	assert.Zero(t, resp.Subgraph.Metadata.NodeCount)
	assert.Equal(t, "No matching code entities were found.", resp.Summary)
}
