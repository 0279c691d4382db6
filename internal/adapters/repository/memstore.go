package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/pkg/metrics"
)

type briefingKey struct {
	userID string
	date   time.Time
}

// MemStore is an in-memory Store. Every read and write copies so callers
// never share slices or maps with the store.
type MemStore struct {
	mu sync.RWMutex

	papers     map[string]model.Paper
	paperOrder []string
	scores     map[string]model.Score
	profiles   map[string]model.UserProfile
	feedback   map[string][]model.FeedbackEvent
	eventIDs   map[string]struct{}
	briefings  map[briefingKey]model.Briefing

	recordLatency bool
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		papers:        make(map[string]model.Paper),
		scores:        make(map[string]model.Score),
		profiles:      make(map[string]model.UserProfile),
		feedback:      make(map[string][]model.FeedbackEvent),
		eventIDs:      make(map[string]struct{}),
		briefings:     make(map[briefingKey]model.Briefing),
		recordLatency: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) observe(op string, start time.Time) {
	if s.recordLatency {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
	}
}

// SavePaper inserts or replaces a paper. An empty status is derived from
// whether enrichment is attached.
func (s *MemStore) SavePaper(_ context.Context, paper model.Paper) error {
	defer s.observe("save_paper", time.Now())
	if paper.ID == "" {
		return fmt.Errorf("empty id: %w", ErrInvalidPaper)
	}
	if paper.Status == "" {
		paper.Status = model.StatusFetched
		if paper.Enrichment != nil {
			paper.Status = model.StatusEnriched
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.papers[paper.ID]; !ok {
		s.paperOrder = append(s.paperOrder, paper.ID)
	}
	s.papers[paper.ID] = paper.Clone()
	return nil
}

// GetPaper returns a copy of the paper.
func (s *MemStore) GetPaper(_ context.Context, id string) (model.Paper, error) {
	defer s.observe("get_paper", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.papers[id]
	if !ok {
		return model.Paper{}, fmt.Errorf("paper %s: %w", id, model.ErrPaperNotFound)
	}
	return p.Clone(), nil
}

// ListPapers returns the known papers among ids in the order given.
func (s *MemStore) ListPapers(_ context.Context, ids []string) ([]model.Paper, error) {
	defer s.observe("list_papers", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Paper, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.papers[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// ListUnranked returns enriched, not yet ranked papers in insertion order.
func (s *MemStore) ListUnranked(_ context.Context) ([]model.Paper, error) {
	defer s.observe("list_unranked", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Paper, 0)
	for _, id := range s.paperOrder {
		p := s.papers[id]
		if p.Enrichment != nil && p.Status != model.StatusRanked {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// MarkRanked sets the status of known papers to ranked. Unknown ids are ignored.
func (s *MemStore) MarkRanked(_ context.Context, ids []string) error {
	defer s.observe("mark_ranked", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if p, ok := s.papers[id]; ok {
			p.Status = model.StatusRanked
			s.papers[id] = p
		}
	}
	return nil
}

// UpsertScore replaces any previous score of the paper.
func (s *MemStore) UpsertScore(_ context.Context, score model.Score) error {
	defer s.observe("upsert_score", time.Now())
	if score.PaperID == "" {
		return fmt.Errorf("score without paper id: %w", ErrInvalidPaper)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.PaperID] = score.Clone()
	return nil
}

// GetScore returns the live score of a paper.
func (s *MemStore) GetScore(_ context.Context, paperID string) (model.Score, error) {
	defer s.observe("get_score", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[paperID]
	if !ok {
		return model.Score{}, fmt.Errorf("paper %s: %w", paperID, ErrScoreNotFound)
	}
	return sc.Clone(), nil
}

// ListCandidates returns enriched, scored papers published since q.Since
// with a final score of at least q.MinScore. Ordered by score desc, then
// newest first, then id.
func (s *MemStore) ListCandidates(_ context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	defer s.observe("list_candidates", time.Now())
	s.mu.RLock()
	out := make([]model.Candidate, 0)
	for _, id := range s.paperOrder {
		p := s.papers[id]
		if p.Enrichment == nil || p.PublishedAt.Before(q.Since) {
			continue
		}
		sc, ok := s.scores[id]
		if !ok || sc.FinalScore < q.MinScore {
			continue
		}
		out = append(out, model.Candidate{Paper: p.Clone(), Score: sc.Clone()})
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score.FinalScore != b.Score.FinalScore {
			return a.Score.FinalScore > b.Score.FinalScore
		}
		if !a.Paper.PublishedAt.Equal(b.Paper.PublishedAt) {
			return a.Paper.PublishedAt.After(b.Paper.PublishedAt)
		}
		return a.Paper.ID < b.Paper.ID
	})
	return out, nil
}

// GetProfile returns a copy of the user's profile.
func (s *MemStore) GetProfile(_ context.Context, userID string) (model.UserProfile, error) {
	defer s.observe("get_profile", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return model.UserProfile{}, fmt.Errorf("user %s: %w", userID, model.ErrProfileNotFound)
	}
	return p.Clone(), nil
}

// SaveProfile inserts or replaces a profile, interest vector included.
func (s *MemStore) SaveProfile(_ context.Context, profile model.UserProfile) error {
	defer s.observe("save_profile", time.Now())
	if profile.UserID == "" {
		return fmt.Errorf("empty user id: %w", ErrInvalidProfile)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile.Clone()
	return nil
}

// UpdateSettings replaces every profile field but the interest vector. The
// stored vector is read under the same lock that writes the settings.
func (s *MemStore) UpdateSettings(_ context.Context, profile model.UserProfile) error {
	defer s.observe("update_settings", time.Now())
	if profile.UserID == "" {
		return fmt.Errorf("empty user id: %w", ErrInvalidProfile)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := profile.Clone()
	if prev, ok := s.profiles[profile.UserID]; ok {
		next.InterestVector = prev.InterestVector
	}
	s.profiles[profile.UserID] = next
	return nil
}

// UpdateInterestVector runs fn under the write lock so concurrent updates
// for the same user are serialized.
func (s *MemStore) UpdateInterestVector(_ context.Context, userID string, fn model.VectorUpdate) (model.Embedding, error) {
	defer s.observe("update_interest_vector", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, model.ErrProfileNotFound)
	}
	next, err := fn(p.InterestVector.Clone())
	if err != nil {
		return nil, err
	}
	p.InterestVector = next.Clone()
	s.profiles[userID] = p
	return next.Clone(), nil
}

// AppendFeedback records an event for its user. Re-appending a known event
// id is a no-op.
func (s *MemStore) AppendFeedback(_ context.Context, event model.FeedbackEvent) error {
	defer s.observe("append_feedback", time.Now())
	if event.UserID == "" || event.PaperID == "" {
		return fmt.Errorf("event %s: %w", event.ID, ErrInvalidFeedback)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID != "" {
		if _, ok := s.eventIDs[event.ID]; ok {
			return nil
		}
		s.eventIDs[event.ID] = struct{}{}
	}
	s.feedback[event.UserID] = append(s.feedback[event.UserID], event)
	return nil
}

// ListFeedback returns a copy of the user's events oldest first.
func (s *MemStore) ListFeedback(_ context.Context, userID string) ([]model.FeedbackEvent, error) {
	defer s.observe("list_feedback", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.FeedbackEvent(nil), s.feedback[userID]...), nil
}

// UserHistory builds the novelty reference from positively rated papers.
func (s *MemStore) UserHistory(ctx context.Context, userID string) (model.UserHistory, error) {
	events, err := s.ListFeedback(ctx, userID)
	if err != nil {
		return model.UserHistory{}, err
	}
	papers, err := s.ListPapers(ctx, PositivePaperIDs(events))
	if err != nil {
		return model.UserHistory{}, err
	}
	return BuildHistory(papers)
}

// UpsertBriefing stores the briefing under (UserID, midnight UTC of Date).
func (s *MemStore) UpsertBriefing(_ context.Context, b model.Briefing) (model.Briefing, error) {
	defer s.observe("upsert_briefing", time.Now())
	b.Date = model.DigestDate(b.Date)
	key := briefingKey{userID: b.UserID, date: b.Date}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.briefings[key]; ok {
		b.ID = prev.ID
		b.CreatedAt = prev.CreatedAt
	}
	s.briefings[key] = b.Clone()
	return b.Clone(), nil
}

// GetBriefing returns the briefing generated for the user on date's day.
func (s *MemStore) GetBriefing(_ context.Context, userID string, date time.Time) (model.Briefing, error) {
	defer s.observe("get_briefing", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.briefings[briefingKey{userID: userID, date: model.DigestDate(date)}]
	if !ok {
		return model.Briefing{}, fmt.Errorf("user %s on %s: %w", userID, date.Format(time.DateOnly), ErrBriefingNotFound)
	}
	return b.Clone(), nil
}
