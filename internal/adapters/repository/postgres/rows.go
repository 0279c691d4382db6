package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/curio/internal/domain/model"
)

// paperRow mirrors paperColumns.
type paperRow struct {
	id, title, abstract string
	authors             []byte
	publishedAt         time.Time
	status              string
	enriched            bool
	topics, facets      pq.StringArray
	embedding           pq.Float64Array
	mathDepth           float64
	evidence            []byte
}

func (r *paperRow) dest() []any {
	return []any{&r.id, &r.title, &r.abstract, &r.authors, &r.publishedAt, &r.status,
		&r.enriched, &r.topics, &r.facets, &r.embedding, &r.mathDepth, &r.evidence}
}

func (r *paperRow) paper() (model.Paper, error) {
	p := model.Paper{
		ID:          r.id,
		Title:       r.title,
		Abstract:    r.abstract,
		PublishedAt: r.publishedAt.UTC(),
		Status:      model.PaperStatus(r.status),
	}
	if err := json.Unmarshal(r.authors, &p.Authors); err != nil {
		return model.Paper{}, fmt.Errorf("decode authors of %s: %w", r.id, err)
	}
	if !r.enriched {
		return p, nil
	}

	enr := &model.Enrichment{
		Topics:    []string(r.topics),
		Facets:    []string(r.facets),
		Embedding: model.Embedding(r.embedding),
		MathDepth: r.mathDepth,
	}
	if err := json.Unmarshal(r.evidence, &enr.Evidence); err != nil {
		return model.Paper{}, fmt.Errorf("decode evidence of %s: %w", r.id, err)
	}
	p.Enrichment = enr
	return p, nil
}

func scanPaper(row rowScanner) (model.Paper, error) {
	var r paperRow
	if err := row.Scan(r.dest()...); err != nil {
		return model.Paper{}, err
	}
	return r.paper()
}

// scoreRow mirrors scoreColumns.
type scoreRow struct {
	s   model.Score
	why []byte
}

func (r *scoreRow) dest() []any {
	return []any{&r.s.PaperID, &r.s.Novelty, &r.s.Evidence, &r.s.Velocity, &r.s.PersonalFit,
		&r.s.LabPrior, &r.s.MathPenalty, &r.s.FinalScore, &r.why, &r.s.ScoredAt}
}

func (r *scoreRow) score() (model.Score, error) {
	out := r.s
	out.ScoredAt = out.ScoredAt.UTC()
	if len(r.why) > 0 {
		if err := json.Unmarshal(r.why, &out.WhyShown); err != nil {
			return model.Score{}, fmt.Errorf("decode why_shown of %s: %w", out.PaperID, err)
		}
	}
	return out, nil
}

func scanScore(row rowScanner) (model.Score, error) {
	var r scoreRow
	if err := row.Scan(r.dest()...); err != nil {
		return model.Score{}, err
	}
	return r.score()
}

// profileRow mirrors profileColumns.
type profileRow struct {
	userID                           string
	interest                         pq.Float64Array
	includeTopics, excludeTopics     pq.StringArray
	includeKeywords, excludeKeywords pq.StringArray
	threshold                        float64
	noiseCap                         int
	exploration, mathSensitivity     float64
	labBoosts                        []byte
	updatedAt                        time.Time
}

func (r *profileRow) dest() []any {
	return []any{&r.userID, &r.interest, &r.includeTopics, &r.excludeTopics, &r.includeKeywords,
		&r.excludeKeywords, &r.threshold, &r.noiseCap, &r.exploration, &r.mathSensitivity,
		&r.labBoosts, &r.updatedAt}
}

func (r *profileRow) profile() (model.UserProfile, error) {
	p := model.UserProfile{
		UserID:          r.userID,
		InterestVector:  model.Embedding(r.interest),
		IncludeTopics:   []string(r.includeTopics),
		ExcludeTopics:   []string(r.excludeTopics),
		IncludeKeywords: []string(r.includeKeywords),
		ExcludeKeywords: []string(r.excludeKeywords),
		ScoreThreshold:  r.threshold,
		NoiseCap:        r.noiseCap,
		ExplorationRate: r.exploration,
		MathSensitivity: r.mathSensitivity,
		UpdatedAt:       r.updatedAt.UTC(),
	}
	if len(r.labBoosts) > 0 {
		if err := json.Unmarshal(r.labBoosts, &p.LabBoosts); err != nil {
			return model.UserProfile{}, fmt.Errorf("decode lab boosts of %s: %w", r.userID, err)
		}
	}
	return p, nil
}
