package training

import (
	"errors"
	"fmt"
)

// Sentinel kinds for training errors.
var (
	ErrFit            = errors.New("model fit failed")
	ErrNoTrainingData = errors.New("no training data")
)

// FitError wraps a base estimator failure during a training run. Artifacts
// are never touched when fitting fails.
type FitError struct {
	Stage string
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("model fit failed: %s: %v", e.Stage, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// Is reports whether target matches the fit sentinel.
func (e *FitError) Is(target error) bool { return target == ErrFit }
