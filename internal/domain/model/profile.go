package model

import "time"

// Exploration rate bounds.
const (
	MinExplorationRate = 0.0
	MaxExplorationRate = 0.3
)

// Defaults for a profile created without explicit settings.
const (
	DefaultScoreThreshold  = 0.5
	DefaultNoiseCap        = 10
	DefaultExplorationRate = 0.1
)

// UserProfile carries a user's interest model and digest preferences.
// FeedbackVectorUpdater writes only InterestVector; settings changes write
// everything else.
type UserProfile struct {
	UserID          string
	InterestVector  Embedding
	IncludeTopics   []string
	ExcludeTopics   []string
	IncludeKeywords []string
	ExcludeKeywords []string
	ScoreThreshold  float64
	NoiseCap        int
	ExplorationRate float64
	MathSensitivity float64
	LabBoosts       map[string]float64
	UpdatedAt       time.Time
}

// NewProfile returns a cold-start profile: no interest vector, no rules and
// default digest settings.
func NewProfile(userID string) UserProfile {
	return UserProfile{
		UserID:          userID,
		ScoreThreshold:  DefaultScoreThreshold,
		NoiseCap:        DefaultNoiseCap,
		ExplorationRate: DefaultExplorationRate,
	}
}

// BoostedLabs returns the labs with a positive boost weight.
func (p *UserProfile) BoostedLabs() []string {
	labs := make([]string, 0, len(p.LabBoosts))
	for lab, w := range p.LabBoosts {
		if w > 0 && lab != "" {
			labs = append(labs, lab)
		}
	}
	return labs
}

// ClampedExplorationRate returns ExplorationRate bounded to [0, 0.3].
func (p *UserProfile) ClampedExplorationRate() float64 {
	switch {
	case p.ExplorationRate < MinExplorationRate:
		return MinExplorationRate
	case p.ExplorationRate > MaxExplorationRate:
		return MaxExplorationRate
	default:
		return p.ExplorationRate
	}
}

// Clone deep-copies the profile.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.InterestVector = p.InterestVector.Clone()
	out.IncludeTopics = append([]string(nil), p.IncludeTopics...)
	out.ExcludeTopics = append([]string(nil), p.ExcludeTopics...)
	out.IncludeKeywords = append([]string(nil), p.IncludeKeywords...)
	out.ExcludeKeywords = append([]string(nil), p.ExcludeKeywords...)
	if p.LabBoosts != nil {
		out.LabBoosts = make(map[string]float64, len(p.LabBoosts))
		for k, v := range p.LabBoosts {
			out.LabBoosts[k] = v
		}
	}
	return out
}

// UserHistory is the reference a paper's novelty is measured against.
type UserHistory struct {
	Centroid Embedding
	Keywords []string
}
