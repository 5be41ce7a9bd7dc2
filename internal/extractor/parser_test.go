package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModule = `import os

def add(a, b): return a + b

class Greeter:
    def __init__(self, name):
        self.name = name

    def greet(self):
        def shout(msg):
            return msg.upper()
        return shout("hi " + self.name)


@decorator
async def fetch(url):
    return url
`

func parse(t *testing.T, src string) []SourceEntity {
	t.Helper()
	p := NewParser()
	defer p.Close()

	entities, err := p.Parse(context.Background(), "sample.py", []byte(src))
	require.NoError(t, err)
	return entities
}

// span returns lines [start, end] of src, 1-based inclusive.
func span(src string, start, end int) string {
	lines := strings.Split(src, "\n")
	return strings.Join(lines[start-1:end], "\n")
}

func TestParse_SingleLineFunction(t *testing.T) {
	entities := parse(t, "def add(a, b): return a + b")

	require.Len(t, entities, 1)
	assert.Equal(t, SourceEntity{
		FilePath:   "sample.py",
		EntityType: Function,
		EntityName: "add",
		StartLine:  1,
		EndLine:    1,
		Code:       "def add(a, b): return a + b",
	}, entities[0])
}

func TestParse_NestedDefinitions(t *testing.T) {
	entities := parse(t, sampleModule)

	type want struct {
		kind       EntityType
		name       string
		start, end int
	}
	expected := []want{
		{Function, "add", 3, 3},
		{Class, "Greeter", 5, 12},
		{Function, "__init__", 6, 7},
		{Function, "greet", 9, 12},
		{Function, "shout", 10, 11},
		{Function, "fetch", 16, 17},
	}

	require.Len(t, entities, len(expected))
	for i, w := range expected {
		e := entities[i]
		assert.Equal(t, w.kind, e.EntityType, "entity %d type", i)
		assert.Equal(t, w.name, e.EntityName, "entity %d name", i)
		assert.Equal(t, w.start, e.StartLine, "%s start line", w.name)
		assert.Equal(t, w.end, e.EndLine, "%s end line", w.name)
	}
}

func TestParse_CodeMatchesLineSpan(t *testing.T) {
	for _, e := range parse(t, sampleModule) {
		assert.LessOrEqual(t, e.StartLine, e.EndLine, e.EntityName)

		// Code starts at the definition keyword, which may be indented.
		lines := span(sampleModule, e.StartLine, e.EndLine)
		assert.True(t, strings.HasSuffix(lines, e.Code), "%s: code must end the span", e.EntityName)
		assert.Equal(t, strings.TrimLeft(lines, " \t"), e.Code, e.EntityName)
	}
}

func TestParse_ExcludesDecorators(t *testing.T) {
	entities := parse(t, sampleModule)
	fetch := entities[len(entities)-1]

	assert.Equal(t, "async def fetch(url):\n    return url", fetch.Code)
}

func TestParse_NoDefinitions(t *testing.T) {
	entities := parse(t, "x = 1\nprint(x)\n")
	assert.Empty(t, entities)
}

func TestParse_SyntaxError(t *testing.T) {
	p := NewParser()
	defer p.Close()

	entities, err := p.Parse(context.Background(), "broken.py", []byte("def ok():\n    pass\n\ndef broken(:\n    pass\n"))
	require.Error(t, err)
	assert.Empty(t, entities)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.py", perr.Path)
	assert.Positive(t, perr.Line)
	assert.Contains(t, perr.Error(), "broken.py")
}

func TestParse_RecoveredSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing body at eof", "def g():\n"},
		{"unindented body", "def f():\nreturn 1\n"},
		{"comment only class body", "class C:\n    # only a comment\n"},
		{"empty if suite", "def h():\n    if x:\n"},
		{"bare walrus statement", "x := 1\n"},
		{"python 2 print", "print \"hi\"\n"},
		{"python 2 exec", "exec \"x = 1\"\n"},
	}

	p := NewParser()
	defer p.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, err := p.Parse(context.Background(), "bad.py", []byte(tt.src))
			require.Error(t, err)
			assert.Empty(t, entities)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "bad.py", perr.Path)
			assert.Positive(t, perr.Line)
			assert.Positive(t, perr.Column)
			assert.NotEmpty(t, perr.Msg)
		})
	}
}

func TestParse_ValidLookalikes(t *testing.T) {
	src := "y = (x := 1)\n\ndef f(): pass\n\nprint(\"hi\")\n\nclass C:\n    \"\"\"Doc.\"\"\"\n"

	entities := parse(t, src)

	require.Len(t, entities, 2)
	assert.Equal(t, "f", entities[0].EntityName)
	assert.Equal(t, "C", entities[1].EntityName)
}

func TestParse_TrailingCommentExcluded(t *testing.T) {
	src := "def f():\n    x = 1\n    # trailing\n\ndef g():\n    return 2\n"

	entities := parse(t, src)

	require.Len(t, entities, 2)
	assert.Equal(t, 1, entities[0].StartLine)
	assert.Equal(t, 2, entities[0].EndLine)
	assert.Equal(t, "def f():\n    x = 1", entities[0].Code)
}

func TestEntityType_RoundTrip(t *testing.T) {
	for _, kind := range []EntityType{Function, Class} {
		parsed, ok := ParseEntityType(kind.String())
		require.True(t, ok)
		assert.Equal(t, kind, parsed)
	}
	_, ok := ParseEntityType("Module")
	assert.False(t, ok)
}
