package worker

import (
	"github.com/okian/curio/internal/domain/dedupe"
	"github.com/okian/curio/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDeduper skips events whose id was already processed.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *InMemoryWorker) {
		w.deduper = d
	}
}

// withStats shares counters between the workers of a pool.
func withStats(s *Stats) Option {
	return func(w *InMemoryWorker) {
		w.stats = s
	}
}
