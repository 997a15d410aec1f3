package resolver

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a session's context is cancelled while a
// resolve or coordinator batch is in flight.
var ErrCancelled = errors.New("resolver: cancelled")

// MissingSchemaError means the upstream platform has no board by this id.
type MissingSchemaError struct {
	BoardID string
}

func (e *MissingSchemaError) Error() string {
	return fmt.Sprintf("resolver: board %q has no schema", e.BoardID)
}

// MissingColumnError means the column id is not defined on the board.
type MissingColumnError struct {
	BoardID  string
	ColumnID string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("resolver: column %q not found on board %q", e.ColumnID, e.BoardID)
}
