package app

import (
	"context"
	"sync"
	"time"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/ranking"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

const (
	// DefaultScheduleInterval is the pause between pipeline cycles.
	DefaultScheduleInterval = time.Hour
	defaultCycleTimeout     = 10 * time.Minute
)

// Jobs are the steps a scheduler cycle runs. Service implements it.
type Jobs interface {
	RunRanking(ctx context.Context) ([]ranking.Result, error)
	GenerateDigest(ctx context.Context, userID string) (model.Briefing, error)
	WarmSummaries(ctx context.Context, paperIDs []string) int
}

// Report summarizes one cycle.
type Report struct {
	Ranked       int
	RankFailed   int
	Digests      int
	DigestFailed int
	Warmed       int
}

// Status is "ok" when nothing failed and "partial" otherwise.
func (r Report) Status() string {
	if r.RankFailed == 0 && r.DigestFailed == 0 {
		return "ok"
	}
	return "partial"
}

// Scheduler periodically ranks new papers and rebuilds the digests of
// configured users.
type Scheduler struct {
	jobs     Jobs
	userIDs  []string
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger

	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCycleTimeout bounds a single cycle.
func WithCycleTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScheduler creates a scheduler that builds digests for userIDs.
func NewScheduler(jobs Jobs, userIDs []string, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		jobs:     jobs,
		userIDs:  append([]string(nil), userIDs...),
		interval: DefaultScheduleInterval,
		timeout:  defaultCycleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("scheduler")
	}
	return s
}

// Start runs one cycle immediately and then one per interval, in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.loop(ctx, stopCh, doneCh)
	return nil
}

// Stop signals the loop and waits for the current cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.doneCh == doneCh {
			s.running = false
		}
		s.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scheduler stopping: context done")
			return
		case <-stopCh:
			s.log.Info(ctx, "scheduler stopping")
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil {
		s.log.Error(ctx, "scheduled cycle failed", logger.Error(err))
	}
}

// RunNow runs one cycle synchronously: rank, compose each digest, then warm
// summaries for the selected papers. Cycles never overlap. The error is
// non-nil only when ranking could not start; per-item failures are counted
// in the report.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var report Report

	results, err := s.jobs.RunRanking(ctx)
	if err != nil {
		metrics.RecordSchedulerRun("failed")
		return report, err
	}
	for _, r := range results {
		if r.Err != nil {
			report.RankFailed++
			continue
		}
		report.Ranked++
	}

	var selected []string
	for _, userID := range s.userIDs {
		b, err := s.jobs.GenerateDigest(ctx, userID)
		if err != nil {
			report.DigestFailed++
			s.log.Warn(ctx, "digest generation failed",
				logger.String("user_id", userID),
				logger.Error(err))
			continue
		}
		report.Digests++
		selected = append(selected, b.PaperIDs...)
	}

	report.Warmed = s.jobs.WarmSummaries(ctx, unique(selected))

	metrics.RecordSchedulerRun(report.Status())
	s.log.Info(ctx, "scheduled cycle finished",
		logger.Int("ranked", report.Ranked),
		logger.Int("rank_failed", report.RankFailed),
		logger.Int("digests", report.Digests),
		logger.Int("digest_failed", report.DigestFailed),
		logger.Int("warmed", report.Warmed),
		logger.Duration("took", time.Since(start)))
	return report, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
