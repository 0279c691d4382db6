package kafka

import (
	"time"

	"github.com/okian/curio/pkg/logger"
)

const defaultRetryBackoff = 200 * time.Millisecond

// Option configures a Publisher or Consumer.
type Option func(*options)

type options struct {
	log          logger.Logger
	retryBackoff time.Duration
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRetryBackoff sets the pause between hand-off attempts when the sink rejects an event.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryBackoff = d
		}
	}
}

func newOptions(name string, opts []Option) options {
	o := options{retryBackoff: defaultRetryBackoff}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named(name)
	}
	return o
}
