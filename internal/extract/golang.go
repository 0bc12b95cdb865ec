package extract

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/zheng/repograph/internal/graph"
)

// extractGo parses a Go file with the real parser: exact line ranges,
// receiver-based method association, doc comments and parameter lists.
func extractGo(path string, content []byte) (graph.FileResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return graph.FileResult{}, err
	}

	res := graph.FileResult{
		Path:     path,
		Entities: []*graph.Entity{fileEntity(path, content, LangGo)},
	}

	// First pass: type declarations, so methods can find their parent.
	classLike := make(map[string]string) // type name -> entity id
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		switch gen.Tok {
		case token.IMPORT:
			for _, spec := range gen.Specs {
				imp, ok := spec.(*ast.ImportSpec)
				if !ok {
					continue
				}
				if p, err := strconv.Unquote(imp.Path.Value); err == nil {
					res.Imports = append(res.Imports, p)
				}
			}
		case token.TYPE:
			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				e := goTypeEntity(fset, gen, ts, path)
				if e == nil {
					continue
				}
				res.Entities = append(res.Entities, e)
				if e.Type.IsClassLike() {
					classLike[ts.Name.Name] = e.ID
				}
			}
		}
	}

	// Second pass: functions and methods.
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		e, parentID := goFuncEntity(fset, fn, path, classLike)
		res.Entities = append(res.Entities, e)
		if parentID != "" {
			res.Relations = append(res.Relations, graph.Relation{
				SourceID: parentID,
				TargetID: e.ID,
				Kind:     graph.RelationContains,
			})
		}
	}

	res.Imports = dedupeStrings(res.Imports)
	return res, nil
}

func goTypeEntity(fset *token.FileSet, gen *ast.GenDecl, ts *ast.TypeSpec, path string) *graph.Entity {
	var typ graph.EntityType
	meta := map[string]string{"language": string(LangGo)}

	switch t := ts.Type.(type) {
	case *ast.StructType:
		typ = graph.TypeStruct
		var embedded []string
		for _, f := range t.Fields.List {
			if len(f.Names) == 0 {
				embedded = append(embedded, exprName(f.Type))
			}
		}
		if len(embedded) > 0 {
			meta["bases"] = strings.Join(embedded, ",")
		}
	case *ast.InterfaceType:
		typ = graph.TypeInterface
	default:
		// Aliases and named basic types do not enter the graph.
		return nil
	}

	doc := ""
	if ts.Doc != nil {
		doc = ts.Doc.Text()
	} else if gen.Doc != nil {
		doc = gen.Doc.Text()
	}

	start := fset.Position(ts.Pos())
	end := fset.Position(ts.End())
	meta["line_start"] = strconv.Itoa(start.Line)
	meta["line_end"] = strconv.Itoa(end.Line)

	return &graph.Entity{
		ID:             graph.EntityID(typ, path, ts.Name.Name),
		Type:           typ,
		Name:           ts.Name.Name,
		FilePath:       path,
		ContentPreview: preview([]byte(strings.TrimSpace(doc)), docPreviewLen),
		Doc:            strings.TrimSpace(doc),
		Metadata:       meta,
	}
}

// goFuncEntity builds a function or method entity. A declaration becomes a
// method only when its receiver type is declared in the same file; methods
// on types from other files stay plain functions with a receiver tag, so a
// method node is never parented outside its own file.
func goFuncEntity(fset *token.FileSet, fn *ast.FuncDecl, path string, classLike map[string]string) (*graph.Entity, string) {
	typ := graph.TypeFunction
	parentID := ""
	meta := map[string]string{"language": string(LangGo)}

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		recv := receiverTypeName(fn.Recv.List[0].Type)
		meta["receiver"] = recv
		if id, ok := classLike[recv]; ok {
			typ = graph.TypeMethod
			parentID = id
		}
	}

	var args []string
	if fn.Type.Params != nil {
		for _, p := range fn.Type.Params.List {
			for _, n := range p.Names {
				args = append(args, n.Name)
			}
		}
	}
	if len(args) > 0 {
		meta["args"] = strings.Join(args, ",")
	}

	start := fset.Position(fn.Pos())
	end := fset.Position(fn.End())
	meta["line_start"] = strconv.Itoa(start.Line)
	meta["line_end"] = strconv.Itoa(end.Line)

	doc := ""
	if fn.Doc != nil {
		doc = strings.TrimSpace(fn.Doc.Text())
	}

	return &graph.Entity{
		ID:             graph.EntityID(typ, path, fn.Name.Name),
		Type:           typ,
		Name:           fn.Name.Name,
		FilePath:       path,
		ContentPreview: preview([]byte(doc), docPreviewLen),
		Doc:            doc,
		Metadata:       meta,
	}, parentID
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func exprName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return exprName(t.X)
	case *ast.SelectorExpr:
		return exprName(t.X) + "." + t.Sel.Name
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
