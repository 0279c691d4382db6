package digest

import (
	"context"

	"github.com/okian/curio/internal/domain/model"
)

// Store reads candidates and persists briefings.
type Store interface {
	GetProfile(ctx context.Context, userID string) (model.UserProfile, error)
	ListCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error)
	UpsertBriefing(ctx context.Context, briefing model.Briefing) (model.Briefing, error)
}
