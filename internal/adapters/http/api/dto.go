package api

import (
	"errors"
	"strings"
	"time"

	"github.com/okian/curio/internal/domain/model"
)

type feedbackRequest struct {
	EventID string  `json:"event_id"`
	UserID  string  `json:"user_id"`
	PaperID string  `json:"paper_id"`
	Action  string  `json:"action"`
	Weight  float64 `json:"weight"`
	TS      string  `json:"ts"`
}

func (f feedbackRequest) validate() error {
	switch {
	case strings.TrimSpace(f.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(f.PaperID) == "":
		return errors.New("missing paper_id")
	case strings.TrimSpace(f.Action) == "":
		return errors.New("missing action")
	}
	if f.TS != "" {
		if _, err := time.Parse(time.RFC3339, f.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (f feedbackRequest) event() model.FeedbackEvent {
	e := model.FeedbackEvent{
		ID:      f.EventID,
		UserID:  f.UserID,
		PaperID: f.PaperID,
		Action:  model.Action(strings.ToLower(strings.TrimSpace(f.Action))),
		Weight:  f.Weight,
	}
	if f.TS != "" {
		e.Timestamp, _ = time.Parse(time.RFC3339, f.TS)
		e.Timestamp = e.Timestamp.UTC()
	}
	return e
}

type ackResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type evidenceJSON struct {
	Baselines     bool `json:"baselines"`
	Ablations     bool `json:"ablations"`
	Code          bool `json:"code"`
	Data          bool `json:"data"`
	MultipleEvals bool `json:"multiple_evals"`
}

type enrichmentJSON struct {
	Topics    []string     `json:"topics"`
	Facets    []string     `json:"facets"`
	Embedding []float64    `json:"embedding"`
	MathDepth float64      `json:"math_depth"`
	Evidence  evidenceJSON `json:"evidence"`
}

type paperRequest struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Abstract    string          `json:"abstract"`
	Authors     []model.Author  `json:"authors"`
	PublishedAt time.Time       `json:"published_at"`
	Enrichment  *enrichmentJSON `json:"enrichment"`
}

func (p paperRequest) validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(p.Title) == "":
		return errors.New("missing title")
	case p.Enrichment != nil && p.Enrichment.MathDepth < 0, p.Enrichment != nil && p.Enrichment.MathDepth > 1:
		return errors.New("math_depth must be within [0,1]")
	}
	return nil
}

func (p paperRequest) paper() model.Paper {
	out := model.Paper{
		ID:          p.ID,
		Title:       p.Title,
		Abstract:    p.Abstract,
		Authors:     p.Authors,
		PublishedAt: p.PublishedAt.UTC(),
	}
	if e := p.Enrichment; e != nil {
		out.Enrichment = &model.Enrichment{
			Topics:    e.Topics,
			Facets:    e.Facets,
			Embedding: e.Embedding,
			MathDepth: e.MathDepth,
			Evidence: model.EvidenceFlags{
				Baselines:     e.Evidence.Baselines,
				Ablations:     e.Evidence.Ablations,
				Code:          e.Evidence.Code,
				Data:          e.Evidence.Data,
				MultipleEvals: e.Evidence.MultipleEvals,
			},
		}
	}
	return out
}

type profileJSON struct {
	UserID          string             `json:"user_id"`
	InterestVector  []float64          `json:"interest_vector,omitempty"`
	IncludeTopics   []string           `json:"include_topics"`
	ExcludeTopics   []string           `json:"exclude_topics"`
	IncludeKeywords []string           `json:"include_keywords"`
	ExcludeKeywords []string           `json:"exclude_keywords"`
	ScoreThreshold  *float64           `json:"score_threshold,omitempty"`
	NoiseCap        *int               `json:"noise_cap,omitempty"`
	ExplorationRate *float64           `json:"exploration_rate,omitempty"`
	MathSensitivity *float64           `json:"math_sensitivity,omitempty"`
	LabBoosts       map[string]float64 `json:"lab_boosts,omitempty"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

func (p profileJSON) validate() error {
	switch {
	case p.ScoreThreshold != nil && (*p.ScoreThreshold < 0 || *p.ScoreThreshold > 1):
		return errors.New("score_threshold must be within [0,1]")
	case p.NoiseCap != nil && *p.NoiseCap < 0:
		return errors.New("noise_cap must not be negative")
	case p.ExplorationRate != nil && (*p.ExplorationRate < 0 || *p.ExplorationRate > 0.3):
		return errors.New("exploration_rate must be within [0,0.3]")
	case p.MathSensitivity != nil && (*p.MathSensitivity < 0 || *p.MathSensitivity > 1):
		return errors.New("math_sensitivity must be within [0,1]")
	}
	return nil
}

// profile applies the request onto defaults for userID. The interest vector
// is learned from feedback and never taken from requests.
func (p profileJSON) profile(userID string) model.UserProfile {
	out := model.NewProfile(userID)
	out.IncludeTopics = p.IncludeTopics
	out.ExcludeTopics = p.ExcludeTopics
	out.IncludeKeywords = p.IncludeKeywords
	out.ExcludeKeywords = p.ExcludeKeywords
	out.LabBoosts = p.LabBoosts
	if p.ScoreThreshold != nil {
		out.ScoreThreshold = *p.ScoreThreshold
	}
	if p.NoiseCap != nil {
		out.NoiseCap = *p.NoiseCap
	}
	if p.ExplorationRate != nil {
		out.ExplorationRate = *p.ExplorationRate
	}
	if p.MathSensitivity != nil {
		out.MathSensitivity = *p.MathSensitivity
	}
	return out
}

func profileResponse(p model.UserProfile) profileJSON { //nolint:gocritic // hugeParam
	updated := p.UpdatedAt
	return profileJSON{
		UserID:          p.UserID,
		InterestVector:  p.InterestVector,
		IncludeTopics:   p.IncludeTopics,
		ExcludeTopics:   p.ExcludeTopics,
		IncludeKeywords: p.IncludeKeywords,
		ExcludeKeywords: p.ExcludeKeywords,
		ScoreThreshold:  &p.ScoreThreshold,
		NoiseCap:        &p.NoiseCap,
		ExplorationRate: &p.ExplorationRate,
		MathSensitivity: &p.MathSensitivity,
		LabBoosts:       p.LabBoosts,
		UpdatedAt:       &updated,
	}
}

type briefingResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Date         string    `json:"date"`
	PaperIDs     []string  `json:"paper_ids"`
	PaperCount   int       `json:"paper_count"`
	ExploitCount int       `json:"exploit_count"`
	ExploreCount int       `json:"explore_count"`
	AvgScore     float64   `json:"avg_score"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toBriefingResponse(b model.Briefing) briefingResponse { //nolint:gocritic // hugeParam
	ids := b.PaperIDs
	if ids == nil {
		ids = []string{}
	}
	return briefingResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		Date:         b.Date.Format(time.DateOnly),
		PaperIDs:     ids,
		PaperCount:   b.PaperCount,
		ExploitCount: b.ExploitCount,
		ExploreCount: b.ExploreCount,
		AvgScore:     b.AvgScore,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

type rankResult struct {
	PaperID    string  `json:"paper_id"`
	FinalScore float64 `json:"final_score,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type rankResponse struct {
	Ranked  int          `json:"ranked"`
	Failed  int          `json:"failed"`
	Results []rankResult `json:"results"`
}
