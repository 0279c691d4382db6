// Package app wires the ranking domain to storage and transport and exposes
// the operations used by the HTTP surface and the scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/curio/internal/adapters/mq/queue"
	"github.com/okian/curio/internal/adapters/mq/worker"
	"github.com/okian/curio/internal/adapters/repository"
	"github.com/okian/curio/internal/domain/artifact"
	"github.com/okian/curio/internal/domain/dedupe"
	"github.com/okian/curio/internal/domain/digest"
	"github.com/okian/curio/internal/domain/feedback"
	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/ranking"
	"github.com/okian/curio/internal/domain/scoring"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

// DefaultRankingUserID is used when no ranking user is configured.
const DefaultRankingUserID = "default"

// Service owns the engine's components.
type Service struct {
	mu sync.RWMutex

	store         repository.Store
	deduper       dedupe.Deduper
	scorer        *scoring.Scorer
	artifactCache artifact.Cache
	generator     artifact.Generator
	publisher     Publisher
	consumer      Consumer

	updater   *feedback.Updater
	ranker    *ranking.Engine
	composer  *digest.Composer
	artifacts *artifact.Service

	eventQueue *queue.InMemoryQueue
	workerPool *worker.Pool

	workerCount   int
	queueSize     int
	dedupeSize    int
	rankingUserID string
	lookback      time.Duration
	now           func() time.Time
	newID         func() string

	started        bool
	cancel         context.CancelFunc
	cancelConsumer context.CancelFunc
	consumerDone   chan struct{}

	logger logger.Logger
}

// New constructs a Service. Components not supplied through options get
// in-memory defaults.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     10000,
		dedupeSize:    dedupe.DefaultMaxSize,
		rankingUserID: DefaultRankingUserID,
		lookback:      digest.DefaultLookback,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewMemory(dedupe.WithMaxSize(s.dedupeSize))
	}
	if s.scorer == nil {
		s.scorer = scoring.NewScorer()
	}
	if s.artifactCache == nil {
		s.artifactCache = artifact.NewMemoryCache()
	}
	if s.generator == nil {
		s.generator = artifact.ExcerptGenerator{}
	}

	s.updater = feedback.NewUpdater(s.store,
		feedback.WithClock(s.now),
		feedback.WithLogger(s.logger.Named("feedback")))
	s.ranker = ranking.NewEngine(s.store,
		ranking.WithScorer(s.scorer),
		ranking.WithClock(s.now),
		ranking.WithLogger(s.logger.Named("ranking")))
	s.composer = digest.NewComposer(s.store,
		digest.WithLookback(s.lookback),
		digest.WithClock(s.now),
		digest.WithLogger(s.logger.Named("digest")))
	s.artifacts = artifact.NewService(s.generator, s.artifactCache,
		artifact.WithLogger(s.logger.Named("artifact")))

	return s
}

// Start creates the feedback queue and worker pool and, if configured,
// starts draining the external feedback log.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.eventQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.eventQueue, s.updater,
		worker.WithDeduper(s.deduper),
		worker.WithLogger(s.logger.Named("worker")))
	s.workerPool.Start(runCtx)

	if s.consumer != nil {
		consumerCtx, cancelConsumer := context.WithCancel(runCtx)
		s.cancelConsumer = cancelConsumer
		s.consumerDone = make(chan struct{})
		go func() {
			defer close(s.consumerDone)
			if err := s.consumer.Run(consumerCtx, s.eventQueue); err != nil {
				s.logger.Error(consumerCtx, "feedback consumer stopped", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.String("ranking_user_id", s.rankingUserID),
		logger.Bool("kafka_publish", s.publisher != nil),
		logger.Bool("kafka_consume", s.consumer != nil))
	return nil
}

// Stop drains buffered feedback and releases every component.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping service")

	var errs []error
	if s.consumer != nil {
		s.cancelConsumer()
		<-s.consumerDone
		if err := s.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer: %w", err))
		}
	}
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown workers: %w", err))
	}
	s.cancel()

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
	return errors.Join(errs...)
}

// SubmitFeedback validates an event, assigns its id and timestamp when
// absent and hands it to the external log or the local queue.
func (s *Service) SubmitFeedback(ctx context.Context, event model.FeedbackEvent) (model.FeedbackEvent, error) { //nolint:gocritic // hugeParam
	event.UserID = strings.TrimSpace(event.UserID)
	event.PaperID = strings.TrimSpace(event.PaperID)
	if event.UserID == "" || event.PaperID == "" {
		return model.FeedbackEvent{}, fmt.Errorf("%w: user_id and paper_id are required", ErrInvalidFeedback)
	}
	action, err := model.ParseAction(string(event.Action))
	if err != nil {
		return model.FeedbackEvent{}, err
	}
	event.Action = action
	if event.ID == "" {
		event.ID = s.newID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if event.Weight == 0 {
		event.Weight = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			return model.FeedbackEvent{}, err
		}
		return event, nil
	}

	if !s.started {
		return model.FeedbackEvent{}, ErrNotStarted
	}
	if err := s.eventQueue.Enqueue(ctx, event); err != nil {
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return model.FeedbackEvent{}, fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return model.FeedbackEvent{}, err
	}
	return event, nil
}

// SavePaper stores an enriched paper handed over by the enrichment provider.
func (s *Service) SavePaper(ctx context.Context, paper model.Paper) error { //nolint:gocritic // hugeParam
	if paper.Status == "" {
		paper.Status = model.StatusFetched
		if paper.Enrichment != nil {
			paper.Status = model.StatusEnriched
		}
	}
	return s.store.SavePaper(ctx, paper)
}

// GetProfile returns a user's profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	return s.store.GetProfile(ctx, userID)
}

// SaveProfile replaces a user's preferences. A stored interest vector is
// never overwritten, so feedback applied concurrently is not lost.
func (s *Service) SaveProfile(ctx context.Context, profile model.UserProfile) error { //nolint:gocritic // hugeParam
	profile.UpdatedAt = s.now().UTC()
	return s.store.UpdateSettings(ctx, profile)
}

// RunRanking scores every unranked enriched paper against the ranking user.
func (s *Service) RunRanking(ctx context.Context) ([]ranking.Result, error) {
	return s.ranker.ScoreUnrankedPapers(ctx, s.rankingUserID)
}

// RankPapers scores the given papers against the ranking user.
func (s *Service) RankPapers(ctx context.Context, paperIDs []string) ([]ranking.Result, error) {
	return s.ranker.ScorePapers(ctx, s.rankingUserID, paperIDs)
}

// GenerateDigest builds or rebuilds today's briefing for userID.
func (s *Service) GenerateDigest(ctx context.Context, userID string) (model.Briefing, error) {
	return s.composer.GenerateDailyDigest(ctx, userID)
}

// GetBriefing returns the briefing for userID on date.
func (s *Service) GetBriefing(ctx context.Context, userID string, date time.Time) (model.Briefing, error) {
	return s.store.GetBriefing(ctx, userID, model.DigestDate(date))
}

// Summary returns the cached summary artifact of a paper's abstract.
func (s *Service) Summary(ctx context.Context, paperID string) ([]byte, error) {
	paper, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	return s.artifacts.Get(ctx, artifact.KindSummary, []byte(paper.Abstract))
}

// WarmSummaries generates missing summaries for paperIDs and returns how
// many are now available. Failures are logged and skipped.
func (s *Service) WarmSummaries(ctx context.Context, paperIDs []string) int {
	warmed := 0
	for _, id := range paperIDs {
		if _, err := s.Summary(ctx, id); err != nil {
			s.logger.Warn(ctx, "summary warm-up failed",
				logger.String("paper_id", id),
				logger.Error(err))
			continue
		}
		warmed++
	}
	return warmed
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"rankingUserID": s.rankingUserID,
		"dedupeEntries": s.deduper.Size(),
		"kafka":         s.publisher != nil || s.consumer != nil,
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		stats["feedback"] = s.workerPool.Stats()
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}
	return stats
}
