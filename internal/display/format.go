package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/repograph/internal/graph"
	"github.com/zheng/repograph/internal/retrieve"
)

// FormatEntity renders a single entity as one line.
// e.g., "class  Foo  a.py:3  Authentication helper"
func FormatEntity(e *graph.Entity) string {
	loc := e.FilePath
	if line := e.Metadata["line_start"]; loc != "" && line != "" {
		loc = fmt.Sprintf("%s:%s", loc, line)
	}
	parts := []string{fmt.Sprintf("%-9s", e.Type), e.Name}
	if loc != "" {
		parts = append(parts, loc)
	}
	if doc := firstLine(e.Doc); doc != "" {
		parts = append(parts, truncateDoc(doc, 60))
	}
	return strings.Join(parts, "  ")
}

// FormatEntityList renders entities as an aligned table with a count
// footer.
func FormatEntityList(entities []*graph.Entity) string {
	if len(entities) == 0 {
		return "no entities found\n"
	}

	nameWidth := 0
	for _, e := range entities {
		if len(e.Name) > nameWidth {
			nameWidth = len(e.Name)
		}
	}

	var sb strings.Builder
	for _, e := range entities {
		loc := e.FilePath
		if line := e.Metadata["line_start"]; loc != "" && line != "" {
			loc = fmt.Sprintf("%s:%s", loc, line)
		}
		sb.WriteString(fmt.Sprintf("%-9s %-*s  %s\n", e.Type, nameWidth, e.Name, loc))
	}
	sb.WriteString(fmt.Sprintf("\n%d entities\n", len(entities)))
	return sb.String()
}

// FormatSubgraph renders a retrieval result as a per-file tree with
// anchors marked.
func FormatSubgraph(sub *retrieve.Subgraph) string {
	if sub.NodeCount() == 0 {
		return "empty subgraph\n"
	}

	anchorSet := make(map[string]struct{}, len(sub.Anchors))
	for _, id := range sub.Anchors {
		anchorSet[id] = struct{}{}
	}

	children := make(map[string][]*graph.Entity)
	parents := make(map[string]struct{})
	for _, r := range sub.Edges {
		if r.Kind != graph.RelationContains {
			continue
		}
		parents[r.TargetID] = struct{}{}
	}
	byID := make(map[string]*graph.Entity, len(sub.Nodes))
	for _, e := range sub.Nodes {
		byID[e.ID] = e
	}
	for _, r := range sub.Edges {
		if r.Kind != graph.RelationContains {
			continue
		}
		if child, ok := byID[r.TargetID]; ok {
			children[r.SourceID] = append(children[r.SourceID], child)
		}
	}
	for id := range children {
		sort.Slice(children[id], func(i, j int) bool {
			return children[id][i].ID < children[id][j].ID
		})
	}

	// Roots are nodes nothing in the subgraph contains.
	var roots []*graph.Entity
	for _, e := range sub.Nodes {
		if _, contained := parents[e.ID]; !contained {
			roots = append(roots, e)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })

	var sb strings.Builder
	for _, root := range roots {
		sb.WriteString(entityLabel(root, anchorSet))
		sb.WriteString("\n")
		writeTree(&sb, children, anchorSet, root.ID, "")
	}
	sb.WriteString(fmt.Sprintf("\n%d nodes, %d edges, %d anchors\n",
		sub.NodeCount(), sub.EdgeCount(), len(sub.Anchors)))
	return sb.String()
}

func writeTree(sb *strings.Builder, children map[string][]*graph.Entity, anchors map[string]struct{}, id, indent string) {
	kids := children[id]
	for i, child := range kids {
		isLast := i == len(kids)-1
		prefix := "├── "
		childIndent := indent + "│   "
		if isLast {
			prefix = "└── "
			childIndent = indent + "    "
		}
		sb.WriteString(indent + prefix + entityLabel(child, anchors) + "\n")
		writeTree(sb, children, anchors, child.ID, childIndent)
	}
}

func entityLabel(e *graph.Entity, anchors map[string]struct{}) string {
	label := fmt.Sprintf("%s %s", e.Type, e.Name)
	if _, isAnchor := anchors[e.ID]; isAnchor {
		label += " *"
	}
	return label
}

// FormatRetrieval renders a full retrieval response: summary, tree and
// relevant files.
func FormatRetrieval(resp *retrieve.Response, sub *retrieve.Subgraph) string {
	var sb strings.Builder
	sb.WriteString(resp.Summary)
	sb.WriteString("\n\n")
	sb.WriteString(FormatSubgraph(sub))
	if len(resp.RelevantFiles) > 0 {
		sb.WriteString("\nrelevant files:\n")
		for _, f := range resp.RelevantFiles {
			sb.WriteString("  " + f + "\n")
		}
	}
	return sb.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
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
