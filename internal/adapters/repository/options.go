package repository

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithLatencyMetrics toggles per-operation latency recording.
func WithLatencyMetrics(enabled bool) Option {
	return func(s *MemStore) {
		s.recordLatency = enabled
	}
}
