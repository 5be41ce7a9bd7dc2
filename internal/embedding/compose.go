package embedding

import (
	"fmt"
	"strings"
)

// Mode selects which text represents an entity in vector space. Records
// and the queries run against them must agree on the mode for scores to be
// meaningful.
type Mode int

const (
	// ModeCode embeds the entity's source code only.
	ModeCode Mode = iota
	// ModeEnriched embeds a document combining location, kind, name,
	// description and code.
	ModeEnriched
)

func (m Mode) String() string {
	if m == ModeEnriched {
		return "enriched"
	}
	return "code"
}

// ParseMode accepts "code" or "enriched".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "code":
		return ModeCode, nil
	case "enriched":
		return ModeEnriched, nil
	default:
		return 0, fmt.Errorf("unknown embedding mode %q", s)
	}
}

// Document holds the fields an enriched embedding is composed from.
type Document struct {
	FilePath    string
	EntityType  string
	EntityName  string
	StartLine   int
	EndLine     int
	Description string
	Code        string
}

// Compose returns the text embedded for doc under mode.
func Compose(mode Mode, doc Document) string {
	if mode != ModeEnriched {
		return doc.Code
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", doc.FilePath)
	fmt.Fprintf(&b, "Type: %s\n", doc.EntityType)
	fmt.Fprintf(&b, "Name: %s\n", doc.EntityName)
	fmt.Fprintf(&b, "Lines: %d-%d\n", doc.StartLine, doc.EndLine)
	if doc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", doc.Description)
	}
	b.WriteString("Code:\n")
	b.WriteString(doc.Code)
	return b.String()
}
