// Package extract turns a single source file into graph entities and
// containment relations. Go files are parsed with go/parser for exact
// structure; all other supported languages go through bounded-accuracy
// pattern scanners behind the same interface, so a grammar-based parser
// for any of them is a drop-in replacement.
package extract

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zheng/repograph/internal/graph"
)

// Language identifies a supported source language. The set is closed:
// adding a language means adding a variant and its scanner table.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangScala      Language = "scala"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRust       Language = "rust"
	LangRuby       Language = "ruby"
	LangCSharp     Language = "csharp"
	LangPHP        Language = "php"
	LangGeneric    Language = "generic"
)

// extLanguages maps file extensions to languages. Extensions absent from
// this map are unsupported and skipped by the walker.
var extLanguages = map[string]Language{
	".go": LangGo,

	".py":  LangPython,
	".pyi": LangPython,
	".pyx": LangPython,

	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,

	".java":  LangJava,
	".kt":    LangKotlin,
	".scala": LangScala,

	".c":   LangC,
	".h":   LangC,
	".cpp": LangCPP,
	".cc":  LangCPP,
	".cxx": LangCPP,
	".hpp": LangCPP,
	".hxx": LangCPP,

	".rs": LangRust,

	".rb":  LangRuby,
	".rbw": LangRuby,

	".cs": LangCSharp,

	".php":   LangPHP,
	".phtml": LangPHP,

	// Best-effort generic scanning for the rest of the source zoo.
	".swift": LangGeneric,
	".m":     LangGeneric,
	".dart":  LangGeneric,
	".lua":   LangGeneric,
	".sh":    LangGeneric,
	".bash":  LangGeneric,
	".zsh":   LangGeneric,
	".sql":   LangGeneric,
	".r":     LangGeneric,
	".pl":    LangGeneric,
	".pm":    LangGeneric,
	".hs":    LangGeneric,
	".erl":   LangGeneric,
	".ex":    LangGeneric,
	".exs":   LangGeneric,
	".clj":   LangGeneric,
	".vb":    LangGeneric,
	".ps1":   LangGeneric,
}

// DetectLanguage returns the language for a path and whether the
// extension is supported at all.
func DetectLanguage(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extLanguages[ext]
	return lang, ok
}

// Supported reports whether the file extension is recognized.
func Supported(path string) bool {
	_, ok := DetectLanguage(path)
	return ok
}

const (
	// filePreviewLen bounds the content preview stored on file entities.
	filePreviewLen = 500
	// docPreviewLen bounds doc/preview text on declaration entities.
	docPreviewLen = 200
)

// Extractor extracts structural entities from file content.
type Extractor struct {
	log *slog.Logger
}

// New creates an extractor. A nil logger falls back to slog.Default.
func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Extract scans one file and returns its entities, same-file containment
// relations and imported symbols. It never fails: a structural parse error
// degrades to a bare file entity, logged but not raised.
func (x *Extractor) Extract(path string, content []byte) graph.FileResult {
	lang, ok := DetectLanguage(path)
	if !ok {
		lang = LangGeneric
	}

	switch lang {
	case LangGo:
		res, err := extractGo(path, content)
		if err != nil {
			x.log.Warn("go parse failed, keeping file entity only",
				"path", path, "error", err)
			return fileOnlyResult(path, content, lang)
		}
		return res
	case LangPython:
		return scanPython(path, content)
	default:
		spec, ok := langSpecs[lang]
		if !ok {
			spec = genericSpec
		}
		return scanPatterns(spec, path, content)
	}
}

// fileEntity builds the entity every accepted file contributes.
func fileEntity(path string, content []byte, lang Language) *graph.Entity {
	return &graph.Entity{
		ID:             graph.FileID(path),
		Type:           graph.TypeFile,
		Name:           filepath.Base(path),
		FilePath:       path,
		ContentPreview: preview(content, filePreviewLen),
		Metadata: map[string]string{
			"language": string(lang),
			"size":     strconv.Itoa(len(content)),
		},
	}
}

func fileOnlyResult(path string, content []byte, lang Language) graph.FileResult {
	return graph.FileResult{
		Path:     path,
		Entities: []*graph.Entity{fileEntity(path, content, lang)},
	}
}

// preview returns at most n bytes of content, cut at a rune boundary.
func preview(content []byte, n int) string {
	if len(content) <= n {
		return string(content)
	}
	s := string(content[:n])
	// Trim a trailing partial rune from the byte cut.
	return strings.ToValidUTF8(s, "")
}

