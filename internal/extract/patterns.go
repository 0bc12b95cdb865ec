package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zheng/repograph/internal/graph"
)

// denylist filters control-flow keywords that pattern matches for
// function signatures tend to pick up.
var denylist = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {},
	"try": {}, "catch": {}, "return": {}, "using": {},
}

// classPattern matches a class-like declaration. Group 1 captures the
// name; group 2, when present, the supertype list.
type classPattern struct {
	re  *regexp.Regexp
	typ graph.EntityType
	// noSpan skips brace-span tracking for declarations whose body does
	// not start right after the match (unit structs, typedefs).
	noSpan bool
}

// langSpec is the matcher table for one pattern-scanned language.
type langSpec struct {
	lang      Language
	classes   []classPattern
	functions []*regexp.Regexp
	imports   []*regexp.Regexp
	// impls associates a block with an already-declared class-like type
	// by name (Rust impl blocks). Group 1 captures the type name.
	impls *regexp.Regexp
	// braceless languages get span-free nearest-declaration association.
	braceless bool
}

type classSpan struct {
	id         string
	start, end int
}

// scanPatterns runs a langSpec over file content: class-like declarations
// first (with their brace spans), then function signatures classified as
// methods when they fall inside a class span, then imports.
func scanPatterns(spec langSpec, path string, content []byte) graph.FileResult {
	res := graph.FileResult{
		Path:     path,
		Entities: []*graph.Entity{fileEntity(path, content, spec.lang)},
	}
	text := string(content)
	seen := map[string]struct{}{res.Entities[0].ID: {}}

	var spans []classSpan
	classIDs := make(map[string]string) // class name -> entity id

	for _, cp := range spec.classes {
		for _, m := range cp.re.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			if _, deny := denylist[name]; deny {
				continue
			}
			id := graph.EntityID(cp.typ, path, name)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			e := &graph.Entity{
				ID:       id,
				Type:     cp.typ,
				Name:     name,
				FilePath: path,
				Metadata: map[string]string{
					"language":   string(spec.lang),
					"line_start": strconv.Itoa(lineAt(text, m[0])),
				},
			}
			if len(m) > 5 && m[4] >= 0 {
				if supers := strings.TrimSpace(text[m[4]:m[5]]); supers != "" {
					e.Metadata["bases"] = supers
				}
			}
			res.Entities = append(res.Entities, e)

			if cp.typ.IsClassLike() {
				classIDs[name] = id
				if !cp.noSpan {
					end := len(text)
					if !spec.braceless {
						end = matchBrace(text, m[1]-1)
					}
					spans = append(spans, classSpan{id: id, start: m[0], end: end})
				}
			}
		}
	}

	// Rust-style impl blocks extend the span set of the named type.
	if spec.impls != nil {
		for _, m := range spec.impls.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			id, ok := classIDs[name]
			if !ok {
				continue
			}
			spans = append(spans, classSpan{id: id, start: m[0], end: matchBrace(text, m[1]-1)})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	for _, fre := range spec.functions {
		for _, m := range fre.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			if _, deny := denylist[name]; deny {
				continue
			}

			typ := graph.TypeFunction
			parentID := enclosingClass(spans, m[0], spec.braceless)
			if parentID != "" {
				typ = graph.TypeMethod
			}
			id := graph.EntityID(typ, path, name)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			res.Entities = append(res.Entities, &graph.Entity{
				ID:       id,
				Type:     typ,
				Name:     name,
				FilePath: path,
				Metadata: map[string]string{
					"language":   string(spec.lang),
					"line_start": strconv.Itoa(lineAt(text, m[0])),
				},
			})
			if parentID != "" {
				res.Relations = append(res.Relations, graph.Relation{
					SourceID: parentID,
					TargetID: id,
					Kind:     graph.RelationContains,
				})
			}
		}
	}

	for _, ire := range spec.imports {
		for _, m := range ire.FindAllStringSubmatch(text, -1) {
			if name := strings.TrimSpace(m[1]); name != "" {
				res.Imports = append(res.Imports, name)
			}
		}
	}
	res.Imports = dedupeStrings(res.Imports)
	return res
}

// enclosingClass returns the id of the innermost class span containing
// offset. For braceless languages it falls back to the nearest class
// declared above the offset.
func enclosingClass(spans []classSpan, offset int, braceless bool) string {
	best := ""
	bestStart := -1
	for _, s := range spans {
		if s.start >= offset {
			break
		}
		if braceless || offset < s.end {
			if s.start > bestStart {
				best = s.id
				bestStart = s.start
			}
		}
	}
	return best
}

// matchBrace finds the matching close brace for the block opened at or
// after from, returning the end-of-text offset when unbalanced.
func matchBrace(text string, from int) int {
	depth := 0
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(text)
}

func lineAt(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}

var jsClassPatterns = []classPattern{
	{re: regexp.MustCompile(`class\s+(\w+)(?:\s+extends\s+([\w.]+))?\s*\{`), typ: graph.TypeClass},
	{re: regexp.MustCompile(`(\w+)\s*=\s*class(?:\s+extends\s+([\w.]+))?\s*\{`), typ: graph.TypeClass},
}

var jsFuncPatterns = []*regexp.Regexp{
	regexp.MustCompile(`function\s+(\w+)\s*\(`),
	regexp.MustCompile(`(\w+)\s*=\s*(?:async\s+)?function\s*\(`),
	regexp.MustCompile(`(\w+)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>`),
	regexp.MustCompile(`(\w+)\s*:\s*function\s*\(`),
}

var jsImportPatterns = []*regexp.Regexp{
	regexp.MustCompile(`import\s+[\w{}*,\s]+\s+from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`import\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
}

// langSpecs is the closed matcher-table registry for pattern-scanned
// languages. Go and Python are handled by dedicated extractors.
var langSpecs = map[Language]langSpec{
	LangJavaScript: {
		lang:      LangJavaScript,
		classes:   jsClassPatterns,
		functions: jsFuncPatterns,
		imports:   jsImportPatterns,
	},
	LangTypeScript: {
		lang: LangTypeScript,
		classes: append([]classPattern{
			{re: regexp.MustCompile(`interface\s+(\w+)(?:\s+extends\s+([\w,\s.]+?))?\s*\{`), typ: graph.TypeInterface},
		}, jsClassPatterns...),
		functions: jsFuncPatterns,
		imports:   jsImportPatterns,
	},
	LangJava:   javaLikeSpec(LangJava),
	LangKotlin: javaLikeSpec(LangKotlin),
	LangScala:  javaLikeSpec(LangScala),
	LangC: {
		lang: LangC,
		classes: []classPattern{
			{re: regexp.MustCompile(`typedef\s+struct\s+(?:\w+\s+)?\{[^}]*\}\s*(\w+)\s*;`), typ: graph.TypeStruct, noSpan: true},
			{re: regexp.MustCompile(`struct\s+(\w+)\s*\{`), typ: graph.TypeStruct, noSpan: true},
			{re: regexp.MustCompile(`enum\s+(\w+)\s*\{`), typ: graph.TypeEnum},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^(?:static\s+|inline\s+|extern\s+)*(?:[\w]+\s+\*?\s*)+(\w+)\s*\([^)]*\)\s*\{`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`#include\s*[<"]([^">]+)[">]`),
		},
	},
	LangCPP: {
		lang: LangCPP,
		classes: []classPattern{
			{re: regexp.MustCompile(`class\s+(\w+)(?:\s*:\s*(?:public|private|protected)\s+([\w:,\s]+?))?\s*\{`), typ: graph.TypeClass},
			{re: regexp.MustCompile(`struct\s+(\w+)\s*\{`), typ: graph.TypeStruct},
			{re: regexp.MustCompile(`enum\s+(?:class\s+)?(\w+)\s*\{`), typ: graph.TypeEnum},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^(?:static\s+|inline\s+|virtual\s+|extern\s+)*(?:[\w:<>]+\s+[*&]?\s*)+(\w+)\s*\([^)]*\)\s*(?:const\s*)?\{`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`#include\s*[<"]([^">]+)[">]`),
		},
	},
	LangRust: {
		lang: LangRust,
		classes: []classPattern{
			{re: regexp.MustCompile(`(?:pub(?:\([^)]*\))?\s+)?struct\s+(\w+)`), typ: graph.TypeStruct, noSpan: true},
			{re: regexp.MustCompile(`(?:pub(?:\([^)]*\))?\s+)?enum\s+(\w+)`), typ: graph.TypeEnum},
			{re: regexp.MustCompile(`(?:pub(?:\([^)]*\))?\s+)?trait\s+(\w+)\s*\{`), typ: graph.TypeTrait},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+(\w+)`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`use\s+([\w:]+)`),
		},
		impls: regexp.MustCompile(`impl(?:<[^>]*>)?\s+(\w+)(?:<[^>]*>)?\s*\{`),
	},
	LangRuby: {
		lang:      LangRuby,
		braceless: true,
		classes: []classPattern{
			{re: regexp.MustCompile(`(?m)^\s*class\s+(\w+)(?:\s*<\s*(\w+))?`), typ: graph.TypeClass},
			{re: regexp.MustCompile(`(?m)^\s*module\s+(\w+)\s*$`), typ: graph.TypeModule},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*def\s+(\w+[?!]?)`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`require(?:_relative)?\s+['"]([^'"]+)['"]`),
		},
	},
	LangCSharp: {
		lang: LangCSharp,
		classes: []classPattern{
			{re: regexp.MustCompile(`(?:public\s+|private\s+|protected\s+|internal\s+)?(?:abstract\s+|sealed\s+|partial\s+)*class\s+(\w+)(?:\s*:\s*([\w,\s<>.]+?))?\s*\{`), typ: graph.TypeClass},
			{re: regexp.MustCompile(`(?:public\s+|private\s+|protected\s+|internal\s+)?interface\s+(\w+)(?:\s*:\s*([\w,\s<>.]+?))?\s*\{`), typ: graph.TypeInterface},
			{re: regexp.MustCompile(`(?:public\s+|private\s+|protected\s+|internal\s+)?enum\s+(\w+)\s*\{`), typ: graph.TypeEnum},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?(?:static\s+|virtual\s+|override\s+|abstract\s+|async\s+)*(?:[\w<>\[\],.]+\s+)+(\w+)\s*\([^)]*\)\s*\{`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`using\s+([\w.]+)\s*;`),
		},
	},
	LangPHP: {
		lang: LangPHP,
		classes: []classPattern{
			{re: regexp.MustCompile(`(?:abstract\s+|final\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?(?:\s+implements\s+[\w,\s\\]+)?\s*\{`), typ: graph.TypeClass},
			{re: regexp.MustCompile(`interface\s+(\w+)(?:\s+extends\s+([\w,\s\\]+?))?\s*\{`), typ: graph.TypeInterface},
			{re: regexp.MustCompile(`trait\s+(\w+)\s*\{`), typ: graph.TypeTrait},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?:public\s+|private\s+|protected\s+|static\s+)*function\s+(\w+)\s*\(`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*use\s+([\w\\]+)`),
		},
	},
}

func javaLikeSpec(lang Language) langSpec {
	return langSpec{
		lang: lang,
		classes: []classPattern{
			{re: regexp.MustCompile(`(?:public\s+|private\s+|protected\s+)?(?:abstract\s+|final\s+|open\s+|case\s+|data\s+)*class\s+(\w+)(?:\s+(?:extends|:)\s*([\w,\s<>.]+?))?\s*[\{(]`), typ: graph.TypeClass},
			{re: regexp.MustCompile(`(?:public\s+|private\s+|protected\s+)?interface\s+(\w+)(?:\s+extends\s+([\w,\s<>.]+?))?\s*\{`), typ: graph.TypeInterface},
			{re: regexp.MustCompile(`(?:public\s+|private\s+|protected\s+)?enum\s+(\w+)\s*\{`), typ: graph.TypeEnum},
			{re: regexp.MustCompile(`(?:sealed\s+)?trait\s+(\w+)(?:\s+extends\s+([\w,\s<>.]+?))?\s*\{`), typ: graph.TypeTrait},
		},
		functions: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*(?:public\s+|private\s+|protected\s+|static\s+|final\s+|synchronized\s+|override\s+)*(?:[\w<>\[\],.]+\s+)+(\w+)\s*\([^)]*\)\s*(?:throws\s+[\w,\s.]+)?\s*\{`),
			regexp.MustCompile(`(?m)^\s*(?:override\s+|suspend\s+|private\s+|public\s+|internal\s+)*fun\s+(\w+)\s*\(`),
			regexp.MustCompile(`(?m)^\s*(?:override\s+|private\s+|protected\s+)?def\s+(\w+)\s*[\[(:]`),
		},
		imports: []*regexp.Regexp{
			regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+[\w*])`),
		},
	}
}

// genericSpec is the best-effort fallback for supported extensions
// without a dedicated matcher table.
var genericSpec = langSpec{
	lang: LangGeneric,
	classes: []classPattern{
		{re: regexp.MustCompile(`(?m)^\s*class\s+(\w+)`), typ: graph.TypeClass},
		{re: regexp.MustCompile(`(?m)^\s*(?:pub\s+)?struct\s+(\w+)`), typ: graph.TypeStruct},
		{re: regexp.MustCompile(`(?m)^\s*interface\s+(\w+)`), typ: graph.TypeInterface},
		{re: regexp.MustCompile(`(?m)^\s*trait\s+(\w+)`), typ: graph.TypeTrait},
		{re: regexp.MustCompile(`(?m)^\s*enum\s+(\w+)`), typ: graph.TypeEnum},
		{re: regexp.MustCompile(`(?m)^\s*module\s+(\w+)`), typ: graph.TypeModule},
	},
	functions: []*regexp.Regexp{
		regexp.MustCompile(`function\s+(\w+)\s*\(`),
		regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*[(\s]`),
		regexp.MustCompile(`func\s+(?:\([^)]*\)\s+)?(\w+)\s*\(`),
		regexp.MustCompile(`fn\s+(\w+)\s*\(`),
		regexp.MustCompile(`(?m)^\s*sub\s+(\w+)\s*\{`),
	},
	imports: nil,
}
