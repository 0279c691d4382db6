package model

import (
	"errors"

	"github.com/okian/curio/internal/domain/vector"
)

// Sentinel kinds shared across the domain. Callers match them with errors.Is.
var (
	ErrLengthMismatch  = vector.ErrLengthMismatch
	ErrNotEnriched     = errors.New("paper not enriched")
	ErrProfileNotFound = errors.New("user profile not found")
	ErrPaperNotFound   = errors.New("paper not found")
	ErrUnknownAction   = errors.New("unknown feedback action")
)
