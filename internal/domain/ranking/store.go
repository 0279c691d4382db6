package ranking

import (
	"context"

	"github.com/okian/curio/internal/domain/model"
)

// Store is the persistence the engine needs.
type Store interface {
	ListPapers(ctx context.Context, ids []string) ([]model.Paper, error)
	ListUnranked(ctx context.Context) ([]model.Paper, error)
	MarkRanked(ctx context.Context, ids []string) error
	UpsertScore(ctx context.Context, score model.Score) error
	GetProfile(ctx context.Context, userID string) (model.UserProfile, error)
	UserHistory(ctx context.Context, userID string) (model.UserHistory, error)
}
