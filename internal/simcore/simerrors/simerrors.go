// Package simerrors defines the typed error kinds named in spec §7, in the
// teacher's style of small exported struct types with an Error() method
// rather than sentinel values, so callers can type-switch on kind.
package simerrors

import "fmt"

// ConfigInvalidError is fatal at init: unknown resource/tag/collective/vibe
// references, malformed role-gated reward keys, tag set > 256, invalid map
// cell names.
type ConfigInvalidError struct {
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("config invalid: %s", e.Reason)
}

// CellOccupiedError signals a place/move into a non-empty cell. Never
// returned from Step; only from direct Grid operations, where it is
// swallowed into action_success=false by callers.
type CellOccupiedError struct {
	Row, Col int
}

func (e *CellOccupiedError) Error() string {
	return fmt.Sprintf("cell (%d,%d) occupied", e.Row, e.Col)
}

// OutOfBoundsError signals a place/move outside the grid.
type OutOfBoundsError struct {
	Row, Col int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("cell (%d,%d) out of bounds", e.Row, e.Col)
}

// InsufficientResourcesError signals an action precondition failure.
type InsufficientResourcesError struct {
	Resource string
}

func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("insufficient resource: %s", e.Resource)
}

// UnknownEventError is fatal at init: a fallback references a non-existent
// named event.
type UnknownEventError struct {
	Name string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event: %s", e.Name)
}

// UnknownHandlerError is fatal at init: a reference to a non-existent
// mutation/handler name.
type UnknownHandlerError struct {
	Name string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown handler: %s", e.Name)
}

// ThreadCountBadError: METTAGRID_OBS_THREADS is neither an integer nor "auto".
type ThreadCountBadError struct {
	Value string
}

func (e *ThreadCountBadError) Error() string {
	return fmt.Sprintf("invalid METTAGRID_OBS_THREADS value: %q", e.Value)
}

// BufferMismatchError: a caller-supplied buffer disagrees with the shape
// fixed at init.
type BufferMismatchError struct {
	Buffer   string
	Expected int
	Got      int
}

func (e *BufferMismatchError) Error() string {
	return fmt.Sprintf("buffer %s: expected length %d, got %d", e.Buffer, e.Expected, e.Got)
}
