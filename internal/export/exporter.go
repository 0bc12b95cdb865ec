// Package export renders a repository graph as documentation formats:
// a Markdown structure report and a Graphviz DOT file.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/zheng/repograph/internal/graph"
)

// Exporter generates documents from a built repository graph.
type Exporter struct {
	g *graph.Graph
}

// NewExporter creates an exporter over a graph.
func NewExporter(g *graph.Graph) *Exporter {
	return &Exporter{g: g}
}

// Options configures the export behavior.
type Options struct {
	ProjectName    string
	IncludeImports bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() Options {
	return Options{
		ProjectName:    "repository",
		IncludeImports: true,
	}
}

// WriteMarkdown renders the graph as a structured Markdown report:
// header with totals, a per-type breakdown, then one section per file
// listing its entities and imports.
func (e *Exporter) WriteMarkdown(w io.Writer, opts Options) error {
	fmt.Fprintf(w, "# %s structure graph\n\n", opts.ProjectName)
	fmt.Fprintf(w, "> generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "> nodes: %d | edges: %d\n\n", e.g.NodeCount(), e.g.EdgeCount())

	e.writeTypeBreakdown(w)

	byFile := e.entitiesByFile()
	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	imports := e.importsByFile()

	fmt.Fprintf(w, "---\n\n## Files\n\n")
	for _, path := range paths {
		fmt.Fprintf(w, "### `%s`\n\n", path)

		entities := byFile[path]
		sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

		fmt.Fprintf(w, "| entity | type | doc |\n")
		fmt.Fprintf(w, "|--------|------|-----|\n")
		for _, ent := range entities {
			if ent.Type == graph.TypeFile {
				continue
			}
			doc := truncateDoc(ent.Doc, 60)
			if doc == "" {
				doc = "-"
			}
			fmt.Fprintf(w, "| `%s` | %s | %s |\n", ent.Name, ent.Type, doc)
		}
		fmt.Fprintf(w, "\n")

		if opts.IncludeImports {
			if imps := imports[path]; len(imps) > 0 {
				fmt.Fprintf(w, "imports: %s\n\n", strings.Join(imps, ", "))
			}
		}
	}
	return nil
}

// WriteDOT renders the graph in Graphviz DOT form. Containment edges
// are solid, import edges dashed.
func (e *Exporter) WriteDOT(w io.Writer, opts Options) error {
	fmt.Fprintf(w, "digraph %q {\n", opts.ProjectName)
	fmt.Fprintf(w, "  rankdir=LR;\n")
	fmt.Fprintf(w, "  node [shape=box, fontsize=10];\n\n")

	for _, ent := range e.g.Entities() {
		if !opts.IncludeImports && ent.Type == graph.TypeImport {
			continue
		}
		fmt.Fprintf(w, "  %q [label=%q, shape=%s];\n",
			ent.ID, string(ent.Type)+": "+ent.Name, dotShape(ent.Type))
	}
	fmt.Fprintf(w, "\n")

	for _, r := range e.g.Relations() {
		style := "solid"
		if r.Kind == graph.RelationImports {
			if !opts.IncludeImports {
				continue
			}
			style = "dashed"
		}
		fmt.Fprintf(w, "  %q -> %q [style=%s];\n", r.SourceID, r.TargetID, style)
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

func dotShape(t graph.EntityType) string {
	switch t {
	case graph.TypeFile:
		return "folder"
	case graph.TypeImport:
		return "ellipse"
	default:
		return "box"
	}
}

func (e *Exporter) writeTypeBreakdown(w io.Writer) {
	counts := make(map[string]int)
	for _, ent := range e.g.Entities() {
		counts[string(ent.Type)]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Fprintf(w, "## Entity types\n\n")
	fmt.Fprintf(w, "| type | count |\n")
	fmt.Fprintf(w, "|------|-------|\n")
	for _, t := range types {
		fmt.Fprintf(w, "| %s | %d |\n", t, counts[t])
	}
	fmt.Fprintf(w, "\n")
}

func (e *Exporter) entitiesByFile() map[string][]*graph.Entity {
	byFile := make(map[string][]*graph.Entity)
	for _, ent := range e.g.Entities() {
		if ent.FilePath == "" {
			continue
		}
		byFile[ent.FilePath] = append(byFile[ent.FilePath], ent)
	}
	return byFile
}

// importsByFile maps each file path to the sorted import symbols its
// file entity points at.
func (e *Exporter) importsByFile() map[string][]string {
	out := make(map[string][]string)
	for _, r := range e.g.Relations() {
		if r.Kind != graph.RelationImports {
			continue
		}
		src := e.g.Entity(r.SourceID)
		dst := e.g.Entity(r.TargetID)
		if src == nil || dst == nil || src.Type != graph.TypeFile {
			continue
		}
		out[src.FilePath] = append(out[src.FilePath], dst.Name)
	}
	for p := range out {
		sort.Strings(out[p])
	}
	return out
}

func truncateDoc(doc string, maxLen int) string {
	doc = strings.TrimSpace(doc)
	if idx := strings.Index(doc, "\n"); idx >= 0 {
		doc = doc[:idx]
	}
	if len(doc) > maxLen {
		return doc[:maxLen-3] + "..."
	}
	return doc
}
