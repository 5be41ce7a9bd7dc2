package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	doc := Document{
		FilePath:    "util.py",
		EntityType:  "Function",
		EntityName:  "add",
		StartLine:   1,
		EndLine:     1,
		Description: "Adds two numbers. Returns the sum.",
		Code:        "def add(a, b): return a + b",
	}

	assert.Equal(t, doc.Code, Compose(ModeCode, doc))

	want := "File: util.py\n" +
		"Type: Function\n" +
		"Name: add\n" +
		"Lines: 1-1\n" +
		"Description: Adds two numbers. Returns the sum.\n" +
		"Code:\n" +
		"def add(a, b): return a + b"
	assert.Equal(t, want, Compose(ModeEnriched, doc))

	doc.Description = ""
	assert.NotContains(t, Compose(ModeEnriched, doc), "Description:")
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("Enriched")
	require.NoError(t, err)
	assert.Equal(t, ModeEnriched, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCode, mode)

	_, err = ParseMode("summary")
	assert.Error(t, err)
}
