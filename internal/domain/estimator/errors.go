package estimator

import "errors"

// Sentinel kinds for estimator errors.
var (
	ErrEmptyMatrix       = errors.New("empty feature matrix")
	ErrDimensionMismatch = errors.New("feature matrix and labels disagree in shape")
	ErrNotFitted         = errors.New("estimator not fitted")
	ErrUnknownKind       = errors.New("unknown estimator kind")
)
