package dedupe

import (
	"time"

	"github.com/okian/curio/pkg/logger"
)

const (
	// DefaultMaxSize bounds the in-memory deduper.
	DefaultMaxSize = 50000
	// DefaultTTL is how long the Redis deduper remembers an event id.
	DefaultTTL = 24 * time.Hour
	// DefaultPrefix namespaces Redis keys.
	DefaultPrefix = "curio:feedback:seen:"
)

type config struct {
	maxSize int
	ttl     time.Duration
	prefix  string
	log     logger.Logger
}

// Option configures a Deduper.
type Option func(*config)

// WithMaxSize caps the in-memory deduper. Non-positive means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}

// WithTTL sets the expiry of Redis markers.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for backend failures.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		prefix:  DefaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
