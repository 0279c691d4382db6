package artifact

import "errors"

// Sentinel kinds for artifact errors.
var (
	ErrCacheMiss     = errors.New("artifact cache miss")
	ErrEmptyKind     = errors.New("artifact kind is empty")
	ErrEmptyArtifact = errors.New("generator returned an empty artifact")
)
