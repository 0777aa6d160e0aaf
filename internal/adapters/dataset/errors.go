package dataset

import (
	"errors"
	"fmt"
)

// Sentinel kinds for dataset errors.
var (
	ErrMissingColumn = errors.New("missing dataset column")
	ErrBadValue      = errors.New("bad dataset value")
)

// RowError reports a value that could not be parsed, with its position.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Is reports whether target matches the bad value sentinel.
func (e *RowError) Is(target error) bool { return target == ErrBadValue }
