package vector

import "errors"

// Sentinel kinds for vector errors.
var (
	ErrLengthMismatch = errors.New("vector length mismatch")
)
