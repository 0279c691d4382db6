package feedback

import "errors"

// Sentinel kinds for feedback errors.
var (
	ErrInvalidEvent = errors.New("invalid feedback event")
)
