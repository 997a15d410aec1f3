package formula

import "fmt"

// ParseError carries a position and message for an unrecoverable parse
// failure (unbalanced parentheses, unexpected tokens). Unknown function
// names never produce a ParseError — the parser is tolerant of those.
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Position, e.Message)
}
