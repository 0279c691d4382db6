package feedback

import (
	"context"

	"github.com/okian/curio/internal/domain/model"
)

// Store records events and owns the atomic interest vector update.
type Store interface {
	AppendFeedback(ctx context.Context, event model.FeedbackEvent) error
	GetPaper(ctx context.Context, id string) (model.Paper, error)
	UpdateInterestVector(ctx context.Context, userID string, fn model.VectorUpdate) (model.Embedding, error)
}
