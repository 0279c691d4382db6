package ranking

import (
	"time"

	"github.com/okian/curio/internal/domain/scoring"
	"github.com/okian/curio/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScorer replaces the default scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the time source used for ScoredAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
