package explain

import "errors"

// Sentinel kinds for attribution errors.
var (
	ErrShapeMismatch = errors.New("attribution input shape mismatch")
	ErrNoBackground  = errors.New("background sample is empty")
	ErrRenderChart   = errors.New("attribution chart rendering failed")
)
