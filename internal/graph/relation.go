package graph

// RelationKind represents the type of relationship between entities
type RelationKind string

const (
	RelationContains RelationKind = "contains"
	RelationImports  RelationKind = "imports"
)

// Relation represents a directed edge between two entities
type Relation struct {
	SourceID string       `json:"source"`
	TargetID string       `json:"target"`
	Kind     RelationKind `json:"kind"`
}

// key uniquely identifies a relation for idempotent inserts.
func (r Relation) key() string {
	return r.SourceID + "\x00" + string(r.Kind) + "\x00" + r.TargetID
}
