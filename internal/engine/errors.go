package engine

import (
	"errors"
	"fmt"
)

// Rejection kinds. Use errors.Is against these; the concrete error returned
// is a *MoveError that also carries the offending index and size.
var (
	ErrInvalidBoardSize = errors.New("board size must be 3 or 5")
	ErrInvalidMove      = errors.New("cell index is out of range")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrMalformedBoard   = errors.New("board length does not match board size")
)

// MoveError is a typed rejection from the engine.
type MoveError struct {
	Kind  error
	Index int
	Size  int
}

func (e *MoveError) Error() string {
	switch e.Kind {
	case ErrInvalidBoardSize:
		return fmt.Sprintf("%s (got %d)", e.Kind, e.Size)
	case ErrInvalidMove:
		return fmt.Sprintf("%s: %d not in [0,%d)", e.Kind, e.Index, e.Size*e.Size)
	case ErrCellOccupied:
		return fmt.Sprintf("%s: %d", e.Kind, e.Index)
	default:
		return e.Kind.Error()
	}
}

func (e *MoveError) Unwrap() error { return e.Kind }
