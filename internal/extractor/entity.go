// Package extractor walks a source tree and turns every Python function and
// class definition into a SourceEntity carrying its exact source text.
package extractor

// EntityType distinguishes the constructs the extractor emits.
type EntityType int

const (
	Function EntityType = iota
	Class
)

func (t EntityType) String() string {
	switch t {
	case Function:
		return "Function"
	case Class:
		return "Class"
	default:
		return "Unknown"
	}
}

// ParseEntityType is the inverse of EntityType.String.
func ParseEntityType(s string) (EntityType, bool) {
	switch s {
	case "Function":
		return Function, true
	case "Class":
		return Class, true
	default:
		return 0, false
	}
}

// SourceEntity is one parsed definition.
// Code is the exact byte range of the definition, starting at its def/class
// keyword (decorators excluded); StartLine and EndLine are 1-based and
// inclusive.
type SourceEntity struct {
	FilePath   string
	EntityType EntityType
	EntityName string
	StartLine  int
	EndLine    int
	Code       string
}
