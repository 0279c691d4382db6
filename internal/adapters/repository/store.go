// Package repository defines the persistence contract for papers, scores,
// profiles, feedback and briefings, plus an in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/curio/internal/domain/model"
)

// Store provides read/write access to the ranking state.
type Store interface {
	// SavePaper inserts or replaces a paper.
	SavePaper(ctx context.Context, paper model.Paper) error
	// GetPaper returns model.ErrPaperNotFound for unknown ids.
	GetPaper(ctx context.Context, id string) (model.Paper, error)
	// ListPapers returns the known papers among ids, in the order given.
	ListPapers(ctx context.Context, ids []string) ([]model.Paper, error)
	// ListUnranked returns enriched papers that have not been ranked yet.
	ListUnranked(ctx context.Context) ([]model.Paper, error)
	// MarkRanked flips the status of the given papers to ranked.
	MarkRanked(ctx context.Context, ids []string) error

	// UpsertScore keeps at most one live score per paper.
	UpsertScore(ctx context.Context, score model.Score) error
	// GetScore returns ErrScoreNotFound when the paper has not been scored.
	GetScore(ctx context.Context, paperID string) (model.Score, error)
	// ListCandidates returns scored papers matching q, best first.
	ListCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error)

	// GetProfile returns model.ErrProfileNotFound for unknown users.
	GetProfile(ctx context.Context, userID string) (model.UserProfile, error)
	// SaveProfile inserts or replaces a profile, interest vector included.
	SaveProfile(ctx context.Context, profile model.UserProfile) error
	// UpdateSettings writes every profile field except the interest vector.
	// A new profile is created with the vector it carries.
	UpdateSettings(ctx context.Context, profile model.UserProfile) error
	// UpdateInterestVector atomically reads, transforms and writes a user's
	// interest vector. No other profile field is touched.
	UpdateInterestVector(ctx context.Context, userID string, fn model.VectorUpdate) (model.Embedding, error)

	// AppendFeedback records a feedback event. Events are never modified and
	// re-appending a known event id is a no-op.
	AppendFeedback(ctx context.Context, event model.FeedbackEvent) error
	// ListFeedback returns a user's events oldest first.
	ListFeedback(ctx context.Context, userID string) ([]model.FeedbackEvent, error)
	// UserHistory derives the novelty reference from positive feedback.
	UserHistory(ctx context.Context, userID string) (model.UserHistory, error)

	// UpsertBriefing stores the briefing for (UserID, Date), replacing any
	// previous one. The stored record keeps its original ID and CreatedAt.
	UpsertBriefing(ctx context.Context, briefing model.Briefing) (model.Briefing, error)
	// GetBriefing returns ErrBriefingNotFound when nothing was generated that day.
	GetBriefing(ctx context.Context, userID string, date time.Time) (model.Briefing, error)
}
