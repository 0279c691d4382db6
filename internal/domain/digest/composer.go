// Package digest composes a bounded daily briefing from ranked papers.
//
// A briefing exploits the best scoring papers and reserves a share of its
// slots for papers that point away from the user's current interests.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

// Composer generates and persists daily briefings.
type Composer struct {
	store    Store
	lookback time.Duration
	now      func() time.Time
	newID    func() string
	log      logger.Logger
}

// NewComposer creates a composer over store.
func NewComposer(store Store, opts ...Option) *Composer {
	c := &Composer{
		store:    store,
		lookback: DefaultLookback,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("digest")
	}
	return c
}

// GenerateDailyDigest builds today's briefing for userID and upserts it.
// Running it again the same day replaces the briefing instead of adding one.
func (c *Composer) GenerateDailyDigest(ctx context.Context, userID string) (model.Briefing, error) {
	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return model.Briefing{}, fmt.Errorf("load profile: %w", err)
	}

	now := c.now().UTC()
	pool, err := c.store.ListCandidates(ctx, model.CandidateQuery{
		Since:    now.Add(-c.lookback),
		MinScore: profile.ScoreThreshold,
	})
	if err != nil {
		return model.Briefing{}, fmt.Errorf("list candidates: %w", err)
	}

	sel, err := Compose(pool, profile)
	if err != nil {
		metrics.RecordErrorByComponent("digest", "compose")
		return model.Briefing{}, err
	}

	briefing, err := c.store.UpsertBriefing(ctx, model.Briefing{
		ID:           c.newID(),
		UserID:       userID,
		Date:         model.DigestDate(now),
		PaperIDs:     sel.PaperIDs(),
		PaperCount:   len(sel.Exploit) + len(sel.Explore),
		ExploitCount: len(sel.Exploit),
		ExploreCount: len(sel.Explore),
		AvgScore:     sel.AvgScore(),
		Status:       model.BriefingReady,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.Briefing{}, fmt.Errorf("upsert briefing: %w", err)
	}

	metrics.RecordDigestGenerated(briefing.PaperCount)
	c.log.Info(ctx, "daily digest generated",
		logger.String("user_id", userID),
		logger.String("date", briefing.Date.Format(time.DateOnly)),
		logger.Int("pool", len(pool)),
		logger.Int("exploit", briefing.ExploitCount),
		logger.Int("explore", briefing.ExploreCount),
		logger.Float64("avg_score", briefing.AvgScore))
	return briefing, nil
}
