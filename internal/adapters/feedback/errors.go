package feedback

import "errors"

// Sentinel kinds for feedback log errors.
var (
	ErrLogClosed  = errors.New("feedback log closed")
	ErrCorruptLog = errors.New("corrupt feedback log")
)
