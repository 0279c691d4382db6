package app

import (
	"context"
	"time"

	"github.com/okian/curio/internal/adapters/mq/kafka"
	"github.com/okian/curio/internal/adapters/repository"
	"github.com/okian/curio/internal/domain/artifact"
	"github.com/okian/curio/internal/domain/dedupe"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/scoring"
	"github.com/okian/curio/pkg/logger"
)

// Publisher sends feedback to an external log instead of the local queue.
type Publisher interface {
	Publish(ctx context.Context, event model.FeedbackEvent) error
	Close() error
}

// Consumer feeds the local queue from an external log.
type Consumer interface {
	Run(ctx context.Context, sink kafka.Sink) error
	Close() error
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of feedback workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the feedback queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDeduper sets the feedback deduper. Defaults to an in-memory one.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithDedupeSize bounds the default in-memory deduper.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPublisher routes submitted feedback through p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithConsumer drains c into the local queue while the service runs.
func WithConsumer(c Consumer) Option {
	return func(s *Service) {
		s.consumer = c
	}
}

// WithScorer sets the scorer used for ranking.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithArtifactCache sets the cache behind summaries. Defaults to memory.
func WithArtifactCache(c artifact.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.artifactCache = c
		}
	}
}

// WithArtifactGenerator replaces the built-in excerpt summarizer.
func WithArtifactGenerator(g artifact.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithRankingUserID sets the user whose profile scores are computed against.
func WithRankingUserID(userID string) Option {
	return func(s *Service) {
		if userID != "" {
			s.rankingUserID = userID
		}
	}
}

// WithLookback sets the digest candidate window.
func WithLookback(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookback = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how feedback event ids are assigned.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
