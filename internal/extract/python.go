package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zheng/repograph/internal/graph"
)

var (
	pyClassRe  = regexp.MustCompile(`^(\s*)class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyDefRe    = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(\w+)\s*\(([^)]*)`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+(.+)`)
	pyFromRe   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+(.+)`)
)

type pyScope struct {
	indent int
	id     string
}

// scanPython is a line-based structural scan of Python source. It tracks
// indentation so methods land under their class and nested scopes close
// when the indent level drops back.
func scanPython(path string, content []byte) graph.FileResult {
	res := graph.FileResult{
		Path:     path,
		Entities: []*graph.Entity{fileEntity(path, content, LangPython)},
	}

	var classStack []pyScope
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := indentWidth(line)

		// Close class scopes the current line is no longer inside of.
		for len(classStack) > 0 && indent <= classStack[len(classStack)-1].indent {
			classStack = classStack[:len(classStack)-1]
		}

		if m := pyImportRe.FindStringSubmatch(line); m != nil && len(classStack) == 0 {
			res.Imports = append(res.Imports, splitPyImports(m[1])...)
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil && len(classStack) == 0 {
			module := m[1]
			for _, name := range splitPyImports(m[2]) {
				res.Imports = append(res.Imports, module+"."+name)
			}
			continue
		}

		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			name := m[2]
			e := &graph.Entity{
				ID:       graph.EntityID(graph.TypeClass, path, name),
				Type:     graph.TypeClass,
				Name:     name,
				FilePath: path,
				Metadata: map[string]string{
					"language":   string(LangPython),
					"line_start": strconv.Itoa(i + 1),
				},
			}
			if bases := strings.TrimSpace(m[3]); bases != "" {
				e.Metadata["bases"] = bases
			}
			res.Entities = append(res.Entities, e)
			classStack = append(classStack, pyScope{indent: indent, id: e.ID})
			continue
		}

		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			name := m[2]
			typ := graph.TypeFunction
			parentID := ""
			if len(classStack) > 0 {
				typ = graph.TypeMethod
				parentID = classStack[len(classStack)-1].id
			}
			e := &graph.Entity{
				ID:       graph.EntityID(typ, path, name),
				Type:     typ,
				Name:     name,
				FilePath: path,
				Metadata: map[string]string{
					"language":   string(LangPython),
					"line_start": strconv.Itoa(i + 1),
				},
			}
			if args := strings.TrimSpace(m[3]); args != "" {
				e.Metadata["args"] = args
			}
			res.Entities = append(res.Entities, e)
			if parentID != "" {
				res.Relations = append(res.Relations, graph.Relation{
					SourceID: parentID,
					TargetID: e.ID,
					Kind:     graph.RelationContains,
				})
			}
		}
	}

	res.Imports = dedupeStrings(res.Imports)
	return res
}

func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// splitPyImports splits "a, b as c" into the imported names, dropping
// aliases and wildcard imports.
func splitPyImports(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if idx := strings.Index(name, " as "); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		name = strings.TrimSuffix(name, "\\")
		name = strings.Trim(name, "()")
		name = strings.TrimSpace(name)
		if name == "" || name == "*" {
			continue
		}
		out = append(out, name)
	}
	return out
}
