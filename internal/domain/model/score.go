package model

import "time"

// SignalName enumerates the signals fused into a final score.
type SignalName string

const (
	SignalNovelty     SignalName = "novelty"
	SignalEvidence    SignalName = "evidence"
	SignalVelocity    SignalName = "velocity"
	SignalPersonalFit SignalName = "personal_fit"
	SignalLabPrior    SignalName = "lab_prior"
	SignalMathPenalty SignalName = "math_penalty"
)

// Signals lists every SignalName in fusion order.
var Signals = []SignalName{
	SignalNovelty,
	SignalEvidence,
	SignalVelocity,
	SignalPersonalFit,
	SignalLabPrior,
	SignalMathPenalty,
}

// WhyShown maps each signal to its weighted contribution to the final score.
// The math penalty contribution is negative.
type WhyShown map[SignalName]float64

// Score is the ranking record for one paper. At most one exists per paper.
type Score struct {
	PaperID     string
	Novelty     float64
	Evidence    float64
	Velocity    float64
	PersonalFit float64
	LabPrior    float64
	MathPenalty float64
	FinalScore  float64
	WhyShown    WhyShown
	ScoredAt    time.Time
}

// Clone returns a copy with its own WhyShown map.
func (s Score) Clone() Score {
	out := s
	if s.WhyShown != nil {
		out.WhyShown = make(WhyShown, len(s.WhyShown))
		for k, v := range s.WhyShown {
			out.WhyShown[k] = v
		}
	}
	return out
}

// Candidate pairs a ranked paper with its score for digest composition.
type Candidate struct {
	Paper Paper
	Score Score
}
