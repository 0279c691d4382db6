package scoring

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights overrides the fusion weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithVelocitySignal plugs in a velocity estimator.
func WithVelocitySignal(v VelocitySignal) Option {
	return func(s *Scorer) {
		if v != nil {
			s.velocity = v
		}
	}
}
