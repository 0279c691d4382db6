// Package scoring turns paper metadata into a single ranking score.
//
// Every signal is a pure function of plain inputs. Scorer wires them to a
// paper and a user profile and fuses the result.
package scoring

import (
	"fmt"

	"github.com/okian/curio/internal/domain/model"
)

// Scorer computes the six signals for a paper and fuses them.
type Scorer struct {
	weights  Weights
	velocity VelocitySignal
}

// NewScorer creates a scorer with default weights and a zero velocity placeholder.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights:  DefaultWeights(),
		velocity: ConstantVelocity(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the fusion weights in use.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Signals computes the raw signal values for an enriched paper.
func (s *Scorer) Signals(paper *model.Paper, profile *model.UserProfile, history model.UserHistory) (Signals, error) {
	if paper.Enrichment == nil {
		return Signals{}, fmt.Errorf("paper %s: %w", paper.ID, model.ErrNotEnriched)
	}
	enr := paper.Enrichment
	text := paper.Text()

	fit, err := PersonalFit(enr.Embedding, profile.InterestVector, enr.Topics, text,
		profile.IncludeTopics, profile.IncludeKeywords)
	if err != nil {
		return Signals{}, fmt.Errorf("personal fit for paper %s: %w", paper.ID, err)
	}

	novelty, err := Novelty(enr.Embedding, text, history)
	if err != nil {
		return Signals{}, fmt.Errorf("novelty for paper %s: %w", paper.ID, err)
	}

	return Signals{
		Novelty:     novelty,
		Evidence:    Evidence(enr.Evidence),
		Velocity:    clamp01(s.velocity.Velocity(*paper)),
		PersonalFit: fit,
		LabPrior:    LabPrior(paper.Authors, profile.BoostedLabs()),
		MathPenalty: MathPenalty(enr.MathDepth, profile.MathSensitivity),
	}, nil
}

// Score computes and fuses all signals into a Score record for the paper.
func (s *Scorer) Score(paper *model.Paper, profile *model.UserProfile, history model.UserHistory) (model.Score, error) {
	sig, err := s.Signals(paper, profile, history)
	if err != nil {
		return model.Score{}, err
	}
	final, why := Fuse(sig, s.weights)
	return model.Score{
		PaperID:     paper.ID,
		Novelty:     sig.Novelty,
		Evidence:    sig.Evidence,
		Velocity:    sig.Velocity,
		PersonalFit: sig.PersonalFit,
		LabPrior:    sig.LabPrior,
		MathPenalty: sig.MathPenalty,
		FinalScore:  final,
		WhyShown:    why,
	}, nil
}
