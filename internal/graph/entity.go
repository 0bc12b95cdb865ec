package graph

import "fmt"

// EntityType represents the kind of a code entity
type EntityType string

const (
	TypeFile      EntityType = "file"
	TypeClass     EntityType = "class"
	TypeInterface EntityType = "interface"
	TypeStruct    EntityType = "struct"
	TypeTrait     EntityType = "trait"
	TypeEnum      EntityType = "enum"
	TypeFunction  EntityType = "function"
	TypeMethod    EntityType = "method"
	TypeModule    EntityType = "module"
	TypeImport    EntityType = "import"
)

// Entity represents a code element in the repository graph
type Entity struct {
	ID             string            `json:"id"`
	Type           EntityType        `json:"type"`
	Name           string            `json:"name"`
	FilePath       string            `json:"file_path"`
	ContentPreview string            `json:"content_preview,omitempty"`
	Doc            string            `json:"doc,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// EntityID builds the deterministic id for an entity. File and import
// entities have no name component; everything else is type:path:name.
func EntityID(typ EntityType, filePath, name string) string {
	switch typ {
	case TypeFile:
		return fmt.Sprintf("file:%s", filePath)
	case TypeImport:
		return fmt.Sprintf("import:%s", name)
	default:
		return fmt.Sprintf("%s:%s:%s", typ, filePath, name)
	}
}

// FileID returns the id of the file entity for a relative path.
func FileID(filePath string) string {
	return EntityID(TypeFile, filePath, "")
}

// ImportID returns the id of the synthetic import entity for a symbol.
func ImportID(name string) string {
	return EntityID(TypeImport, "", name)
}

// IsClassLike reports whether the type can contain methods.
func (t EntityType) IsClassLike() bool {
	switch t {
	case TypeClass, TypeInterface, TypeStruct, TypeTrait:
		return true
	}
	return false
}
