package extractor

import (
	"errors"
	"fmt"
)

// ErrNoSource is returned when the root to index is missing or not a directory.
var ErrNoSource = errors.New("source root not found")

// ParseError reports a file that was skipped because it could not be read or
// parsed. Line and Column are 1-based and zero when unknown.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("cannot parse %s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
