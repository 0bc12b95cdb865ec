package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/repograph/internal/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.AddEntity(&graph.Entity{ID: "file:a.py", Type: graph.TypeFile, Name: "a.py", FilePath: "a.py"})
	g.AddEntity(&graph.Entity{
		ID: "class:a.py:Foo", Type: graph.TypeClass, Name: "Foo", FilePath: "a.py",
		Doc: "Authentication helper.",
	})
	g.AddEntity(&graph.Entity{ID: "method:a.py:bar", Type: graph.TypeMethod, Name: "bar", FilePath: "a.py"})
	g.AddEntity(&graph.Entity{ID: "import:os", Type: graph.TypeImport, Name: "os"})

	require.True(t, g.AddRelation(graph.Relation{SourceID: "file:a.py", TargetID: "class:a.py:Foo", Kind: graph.RelationContains}))
	require.True(t, g.AddRelation(graph.Relation{SourceID: "class:a.py:Foo", TargetID: "method:a.py:bar", Kind: graph.RelationContains}))
	require.True(t, g.AddRelation(graph.Relation{SourceID: "file:a.py", TargetID: "import:os", Kind: graph.RelationImports}))
	return g
}

func TestWriteMarkdown(t *testing.T) {
	e := NewExporter(testGraph(t))

	var buf bytes.Buffer
	require.NoError(t, e.WriteMarkdown(&buf, DefaultOptions()))

	out := buf.String()
	assert.Contains(t, out, "# repository structure graph")
	assert.Contains(t, out, "nodes: 4 | edges: 3")
	assert.Contains(t, out, "### `a.py`")
	assert.Contains(t, out, "| `Foo` | class | Authentication helper. |")
	assert.Contains(t, out, "| `bar` | method | - |")
	assert.Contains(t, out, "imports: os")
	// File entities appear as sections, not table rows.
	assert.NotContains(t, out, "| `a.py` |")
}

func TestWriteMarkdownProjectName(t *testing.T) {
	e := NewExporter(testGraph(t))
	opts := DefaultOptions()
	opts.ProjectName = "myproject"

	var buf bytes.Buffer
	require.NoError(t, e.WriteMarkdown(&buf, opts))
	assert.Contains(t, buf.String(), "# myproject structure graph")
}

func TestWriteDOT(t *testing.T) {
	e := NewExporter(testGraph(t))

	var buf bytes.Buffer
	require.NoError(t, e.WriteDOT(&buf, DefaultOptions()))

	out := buf.String()
	assert.Contains(t, out, `digraph "repository" {`)
	assert.Contains(t, out, `"file:a.py" -> "class:a.py:Foo" [style=solid];`)
	assert.Contains(t, out, `"file:a.py" -> "import:os" [style=dashed];`)
	assert.Contains(t, out, `"file:a.py" [label="file: a.py", shape=folder];`)
	assert.Contains(t, out, `"import:os" [label="import: os", shape=ellipse];`)
}

func TestWriteDOTWithoutImports(t *testing.T) {
	e := NewExporter(testGraph(t))
	opts := DefaultOptions()
	opts.IncludeImports = false

	var buf bytes.Buffer
	require.NoError(t, e.WriteDOT(&buf, opts))

	out := buf.String()
	assert.NotContains(t, out, "import:os")
	assert.Contains(t, out, `"class:a.py:Foo" -> "method:a.py:bar" [style=solid];`)
}
