package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel kinds for gate failures. Typed errors below wrap these so callers
// can branch with errors.Is and still read structured detail with errors.As.
var (
	ErrMissingField     = errors.New("missing required fields")
	ErrInvalidLabel     = errors.New("invalid outcome label")
	ErrInsufficientData = errors.New("insufficient data")
	ErrClassImbalance   = errors.New("class imbalance")
	ErrEmptyBatch       = errors.New("empty feedback batch")
)

// MissingFieldError reports required raw fields absent from the batch.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// InvalidLabelError reports an outcome label that is not numeric 0/1.
type InvalidLabelError struct {
	Found []string
}

func (e *InvalidLabelError) Error() string {
	found := append([]string(nil), e.Found...)
	sort.Strings(found)
	return fmt.Sprintf("actual_status must be numeric 0 (repaid) or 1 (default); found: %s",
		strings.Join(found, ", "))
}

func (e *InvalidLabelError) Is(target error) bool { return target == ErrInvalidLabel }

// InsufficientDataError reports a batch below the minimum training volume.
type InsufficientDataError struct {
	Required int
	Got      int
	// AfterDedupe marks a batch that only fell below the threshold once
	// exact duplicates were collapsed.
	AfterDedupe bool
}

func (e *InsufficientDataError) Error() string {
	if e.AfterDedupe {
		return fmt.Sprintf("insufficient data after duplicate removal: minimum %d, got %d", e.Required, e.Got)
	}
	return fmt.Sprintf("insufficient data: minimum %d, got %d", e.Required, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// ClassImbalanceError reports a two-class batch whose minority fraction is
// below the threshold.
type ClassImbalanceError struct {
	Balance   map[int]float64
	Threshold float64
}

func (e *ClassImbalanceError) Error() string {
	return fmt.Sprintf("severe class imbalance: %.3f repaid / %.3f default; minimum minority fraction %.2f",
		e.Balance[0], e.Balance[1], e.Threshold)
}

func (e *ClassImbalanceError) Is(target error) bool { return target == ErrClassImbalance }
