package feedback

import (
	"time"

	"github.com/okian/curio/pkg/logger"
)

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithLearningRate sets the EMA learning rate. Values outside (0, 1] are ignored.
func WithLearningRate(rate float64) Option {
	return func(u *Updater) {
		if rate > 0 && rate <= 1 {
			u.rate = rate
		}
	}
}

// WithLogger sets the updater's logger.
func WithLogger(l logger.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.log = l
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		if now != nil {
			u.now = now
		}
	}
}
