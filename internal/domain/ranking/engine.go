// Package ranking scores papers for a user and persists the results.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/scoring"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

// Result is the outcome of ranking one paper in a batch. Score is nil when
// Err is set.
type Result struct {
	PaperID string
	Score   *model.Score
	Err     error
}

// Engine drives the scorer over stored papers.
type Engine struct {
	store  Store
	scorer *scoring.Scorer
	log    logger.Logger
	now    func() time.Time
}

// NewEngine creates a ranking engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		scorer: scoring.NewScorer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("ranking")
	}
	return e
}

// RankPaper scores one paper for profile and upserts the score.
func (e *Engine) RankPaper(ctx context.Context, paper model.Paper, profile model.UserProfile, history model.UserHistory) (model.Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	score, err := e.scorer.Score(&paper, &profile, history)
	if err != nil {
		return model.Score{}, err
	}
	score.ScoredAt = e.now().UTC()

	if err := e.store.UpsertScore(ctx, score); err != nil {
		return model.Score{}, fmt.Errorf("upsert score for %s: %w", paper.ID, err)
	}
	return score, nil
}

// ScorePapers ranks the given papers for userID. Unknown ids produce a
// failed Result rather than aborting the batch.
func (e *Engine) ScorePapers(ctx context.Context, userID string, paperIDs []string) ([]Result, error) {
	papers, err := e.store.ListPapers(ctx, paperIDs)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}

	byID := make(map[string]model.Paper, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}

	ordered := make([]model.Paper, 0, len(paperIDs))
	missing := make(map[string]bool)
	for _, id := range paperIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		} else {
			ordered = append(ordered, model.Paper{ID: id})
			missing[id] = true
		}
	}

	return e.rankBatch(ctx, userID, ordered, missing)
}

// ScoreUnrankedPapers ranks every enriched paper that has not been ranked.
func (e *Engine) ScoreUnrankedPapers(ctx context.Context, userID string) ([]Result, error) {
	papers, err := e.store.ListUnranked(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unranked papers: %w", err)
	}
	return e.rankBatch(ctx, userID, papers, nil)
}

func (e *Engine) rankBatch(ctx context.Context, userID string, papers []model.Paper, missing map[string]bool) ([]Result, error) {
	profile, history, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(papers))
	ranked := make([]string, 0, len(papers))
	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{PaperID: p.ID, Err: err})
			continue
		}
		if missing[p.ID] {
			results = append(results, e.fail(ctx, p.ID, fmt.Errorf("paper %s: %w", p.ID, model.ErrPaperNotFound)))
			continue
		}

		score, err := e.RankPaper(ctx, p, profile, history)
		if err != nil {
			results = append(results, e.fail(ctx, p.ID, err))
			continue
		}
		metrics.RecordPaperRanked()
		results = append(results, Result{PaperID: p.ID, Score: &score})
		ranked = append(ranked, p.ID)
	}

	if len(ranked) > 0 {
		if err := e.store.MarkRanked(ctx, ranked); err != nil {
			return results, fmt.Errorf("mark ranked: %w", err)
		}
	}

	e.log.Info(ctx, "ranking batch finished",
		logger.String("user_id", userID),
		logger.Int("papers", len(papers)),
		logger.Int("ranked", len(ranked)),
		logger.Int("failed", len(papers)-len(ranked)))
	return results, nil
}

// loadUser fetches the profile and history once per batch. A user without a
// profile is ranked against a cold-start profile.
func (e *Engine) loadUser(ctx context.Context, userID string) (model.UserProfile, model.UserHistory, error) {
	profile, err := e.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, model.ErrProfileNotFound):
		e.log.Warn(ctx, "no profile, ranking with cold-start defaults", logger.String("user_id", userID))
		profile = model.NewProfile(userID)
	case err != nil:
		return model.UserProfile{}, model.UserHistory{}, fmt.Errorf("load profile: %w", err)
	}

	history, err := e.store.UserHistory(ctx, userID)
	if err != nil {
		return model.UserProfile{}, model.UserHistory{}, fmt.Errorf("load history: %w", err)
	}
	return profile, history, nil
}

func (e *Engine) fail(ctx context.Context, paperID string, err error) Result {
	metrics.RecordRankingError()
	metrics.RecordErrorByComponent("ranking", errorType(err))
	e.log.Warn(ctx, "paper not ranked", logger.String("paper_id", paperID), logger.Error(err))
	return Result{PaperID: paperID, Err: err}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, model.ErrNotEnriched):
		return "not_enriched"
	case errors.Is(err, model.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, model.ErrPaperNotFound):
		return "paper_not_found"
	default:
		return "store"
	}
}
