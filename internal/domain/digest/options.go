package digest

import (
	"time"

	"github.com/okian/curio/pkg/logger"
)

// DefaultLookback is the candidate window of a daily digest.
const DefaultLookback = 24 * time.Hour

// Option applies a configuration option to the Composer.
type Option func(*Composer)

// WithLookback sets the candidate window. Non-positive values are ignored.
func WithLookback(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.lookback = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the composer's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithIDGenerator overrides how new briefing ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(c *Composer) {
		if gen != nil {
			c.newID = gen
		}
	}
}
