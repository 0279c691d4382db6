// Package feedback learns a user's interest vector from explicit feedback.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

// Outcome reports what Apply did with an event.
type Outcome string

const (
	// OutcomeApplied means the interest vector moved.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the event was recorded but the paper had no
	// usable embedding.
	OutcomeSkipped Outcome = "skipped"
)

// Updater records feedback events and folds them into interest vectors.
type Updater struct {
	store Store
	rate  float64
	log   logger.Logger
	now   func() time.Time
}

// NewUpdater creates an updater over store.
func NewUpdater(store Store, opts ...Option) *Updater {
	u := &Updater{
		store: store,
		rate:  DefaultLearningRate,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.log == nil {
		u.log = logger.Get().Named("feedback")
	}
	return u
}

// Apply records the event and updates the user's interest vector.
// A missing paper or one without an embedding is not an error: the event is
// kept and the vector left alone.
func (u *Updater) Apply(ctx context.Context, event model.FeedbackEvent) (Outcome, error) {
	if event.UserID == "" || event.PaperID == "" {
		return "", fmt.Errorf("event %q: %w", event.ID, ErrInvalidEvent)
	}
	if _, err := model.ParseAction(string(event.Action)); err != nil {
		return "", err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = u.now().UTC()
	}

	if err := u.store.AppendFeedback(ctx, event); err != nil {
		return "", fmt.Errorf("append feedback: %w", err)
	}

	paper, err := u.store.GetPaper(ctx, event.PaperID)
	switch {
	case errors.Is(err, model.ErrPaperNotFound):
		u.skip(ctx, event, "paper not found")
		return OutcomeSkipped, nil
	case err != nil:
		return "", fmt.Errorf("load paper: %w", err)
	}

	emb := paper.Embedding()
	if len(emb) == 0 {
		u.skip(ctx, event, "paper has no embedding")
		return OutcomeSkipped, nil
	}

	_, err = u.store.UpdateInterestVector(ctx, event.UserID, func(current model.Embedding) (model.Embedding, error) {
		return StepWithRate(current, emb, event.Action, u.rate)
	})
	if err != nil {
		metrics.RecordErrorByComponent("feedback", errorType(err))
		return "", fmt.Errorf("update interest vector for %s: %w", event.UserID, err)
	}

	metrics.RecordFeedbackApplied()
	u.log.Debug(ctx, "interest vector updated",
		logger.String("user_id", event.UserID),
		logger.String("paper_id", event.PaperID),
		logger.String("action", string(event.Action)))
	return OutcomeApplied, nil
}

// Process adapts Apply to the worker pool's processor contract.
func (u *Updater) Process(ctx context.Context, event model.FeedbackEvent) error {
	_, err := u.Apply(ctx, event)
	return err
}

func (u *Updater) skip(ctx context.Context, event model.FeedbackEvent, reason string) {
	metrics.RecordFeedbackSkipped()
	u.log.Info(ctx, "feedback recorded without vector update",
		logger.String("user_id", event.UserID),
		logger.String("paper_id", event.PaperID),
		logger.String("reason", reason))
}

func errorType(err error) string {
	switch {
	case errors.Is(err, model.ErrProfileNotFound):
		return "profile_not_found"
	case errors.Is(err, model.ErrLengthMismatch):
		return "length_mismatch"
	default:
		return "store"
	}
}
