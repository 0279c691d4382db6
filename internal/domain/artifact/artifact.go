// Package artifact generates derived content such as summaries once per
// distinct input and serves it from a cache afterwards.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

// Kind names a family of artifacts.
type Kind string

const (
	KindSummary  Kind = "summary"
	KindCritique Kind = "critique"
)

// Generator produces an artifact from its input.
type Generator interface {
	Generate(ctx context.Context, kind Kind, input []byte) ([]byte, error)
}

// Cache stores artifacts by key. Get returns ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key is the cache key of an artifact: kind and the SHA-256 of the input.
func Key(kind Kind, input []byte) string {
	sum := sha256.Sum256(input)
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}

// Service generates artifacts on cache miss and reuses them until the input changes.
type Service struct {
	gen    Generator
	cache  Cache
	log    logger.Logger
	flight singleflight.Group
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets the service's logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates an artifact service.
func NewService(gen Generator, cache Cache, opts ...Option) *Service {
	s := &Service{gen: gen, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("artifact")
	}
	return s
}

// Get returns the cached artifact for (kind, input), generating and storing
// it on a miss. Concurrent misses on one key share a single generation. A
// failing cache write is logged and the fresh artifact is still returned.
func (s *Service) Get(ctx context.Context, kind Kind, input []byte) ([]byte, error) {
	if kind == "" {
		return nil, ErrEmptyKind
	}
	key := Key(kind, input)

	if cached, ok := s.lookup(ctx, key); ok {
		metrics.RecordArtifactCacheHit(string(kind))
		return cached, nil
	}
	metrics.RecordArtifactCacheMiss(string(kind))

	v, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.lookup(ctx, key); ok {
			return cached, nil
		}
		return s.generate(ctx, kind, key, input)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Service) lookup(ctx context.Context, key string) ([]byte, bool) {
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		return cached, true
	case !errors.Is(err, ErrCacheMiss):
		s.log.Warn(ctx, "artifact cache read failed", logger.String("key", key), logger.Error(err))
	}
	return nil, false
}

func (s *Service) generate(ctx context.Context, kind Kind, key string, input []byte) ([]byte, error) {
	start := time.Now()
	out, err := s.gen.Generate(ctx, kind, input)
	metrics.RecordArtifactGenerationLatency(string(kind), float64(time.Since(start).Microseconds())/1000.0)
	if err != nil {
		metrics.RecordErrorByComponent("artifact", "generate")
		return nil, fmt.Errorf("generate %s: %w", kind, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("generate %s: %w", kind, ErrEmptyArtifact)
	}

	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn(ctx, "artifact cache write failed", logger.String("key", key), logger.Error(err))
	}
	return out, nil
}
