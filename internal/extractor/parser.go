package extractor

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	nodeFunction = "function_definition"
	nodeClass    = "class_definition"
	nodeComment  = "comment"
)

// Parser extracts definitions from Python source using tree-sitter.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// Parse returns every function and class definition in src, nested ones
// included, in source order. A file containing any syntax error yields a
// *ParseError and no entities.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) ([]SourceEntity, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error(), Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(path, root, src)
	}
	if perr := recoveredError(path, root); perr != nil {
		return nil, perr
	}

	var entities []SourceEntity
	walk(root, func(n *sitter.Node) {
		var kind EntityType
		switch n.Type() {
		case nodeFunction:
			kind = Function
		case nodeClass:
			kind = Class
		default:
			return
		}
		entities = append(entities, newEntity(path, kind, n, src))
	})

	return entities, nil
}

func newEntity(path string, kind EntityType, n *sitter.Node, src []byte) SourceEntity {
	start, end := n.StartByte(), contentEnd(n)

	// The trailing newline token can belong to the node; the span ends at
	// the last non-blank byte.
	for end > start && isSpace(src[end-1]) {
		end--
	}
	code := string(src[start:end])
	startLine := int(n.StartPoint().Row) + 1
	endLine := startLine + strings.Count(code, "\n")

	var name string
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(src)
	}

	return SourceEntity{
		FilePath:   path,
		EntityType: kind,
		EntityName: name,
		StartLine:  startLine,
		EndLine:    endLine,
		Code:       code,
	}
}

// contentEnd is the end of n's last non-comment descendant. Comments
// trailing a block are attached to it but are not part of the definition.
func contentEnd(n *sitter.Node) uint32 {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		child := n.Child(i)
		if child == nil || child.Type() == nodeComment || child.StartByte() == child.EndByte() {
			continue
		}
		return contentEnd(child)
	}
	return n.EndByte()
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// walk visits n and its descendants in pre-order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			walk(child, visit)
		}
	}
}

func syntaxError(path string, root *sitter.Node, src []byte) *ParseError {
	var bad *sitter.Node
	walk(root, func(n *sitter.Node) {
		if bad == nil && (n.IsError() || n.IsMissing()) {
			bad = n
		}
	})

	perr := &ParseError{Path: path, Msg: "invalid syntax"}
	if bad == nil {
		return perr
	}

	perr.Line = int(bad.StartPoint().Row) + 1
	perr.Column = int(bad.StartPoint().Column) + 1
	if bad.IsMissing() {
		perr.Msg = fmt.Sprintf("missing %q", bad.Type())
	} else if text := bad.Content(src); text != "" {
		perr.Msg = fmt.Sprintf("unexpected %q", strings.SplitN(text, "\n", 2)[0])
	}
	return perr
}

// recoveredError reports constructs the grammar accepts without an ERROR
// node but Python rejects, such as a suite with no statements or a
// Python 2 print statement.
func recoveredError(path string, root *sitter.Node) *ParseError {
	var perr *ParseError
	walk(root, func(n *sitter.Node) {
		if perr != nil {
			return
		}

		var at *sitter.Node
		var msg string
		switch n.Type() {
		case nodeFunction, nodeClass:
			if n.ChildByFieldName("body") == nil {
				at, msg = n, "expected an indented block"
			}
		case "block":
			if !hasStatement(n) {
				at, msg = n, "expected an indented block"
			}
		case "print_statement":
			at, msg = n, "missing parentheses in call to 'print'"
		case "exec_statement":
			at, msg = n, "missing parentheses in call to 'exec'"
		case "named_expression":
			if parent := n.Parent(); parent != nil && parent.Type() == "expression_statement" {
				at, msg = n, "invalid syntax: unparenthesized ':=' statement"
			}
		}
		if at == nil {
			return
		}

		perr = &ParseError{
			Path:   path,
			Line:   int(at.StartPoint().Row) + 1,
			Column: int(at.StartPoint().Column) + 1,
			Msg:    msg,
		}
	})
	return perr
}

// hasStatement reports whether a block holds anything besides comments.
func hasStatement(block *sitter.Node) bool {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if child := block.NamedChild(i); child != nil && child.Type() != nodeComment {
			return true
		}
	}
	return false
}
