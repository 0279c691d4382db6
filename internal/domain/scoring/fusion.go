package scoring

import "github.com/okian/curio/internal/domain/model"

// Weights configures the fusion formula. MathPenalty is subtracted.
type Weights struct {
	Novelty     float64 `koanf:"novelty"`
	Evidence    float64 `koanf:"evidence"`
	Velocity    float64 `koanf:"velocity"`
	PersonalFit float64 `koanf:"personal_fit"`
	LabPrior    float64 `koanf:"lab_prior"`
	MathPenalty float64 `koanf:"math_penalty"`
}

// DefaultWeights returns the production fusion weights:
//
//	final = 0.20 novelty + 0.25 evidence + 0.10 velocity + 0.30 fit + 0.10 lab - 0.05 math
func DefaultWeights() Weights {
	return Weights{
		Novelty:     0.20,
		Evidence:    0.25,
		Velocity:    0.10,
		PersonalFit: 0.30,
		LabPrior:    0.10,
		MathPenalty: 0.05,
	}
}

// Signals holds the six raw signal values for one paper.
type Signals struct {
	Novelty     float64
	Evidence    float64
	Velocity    float64
	PersonalFit float64
	LabPrior    float64
	MathPenalty float64
}

// Fuse combines signals into a final score clamped to [0,1] and returns the
// per-signal weighted contributions.
func Fuse(s Signals, w Weights) (float64, model.WhyShown) {
	why := model.WhyShown{
		model.SignalNovelty:     w.Novelty * s.Novelty,
		model.SignalEvidence:    w.Evidence * s.Evidence,
		model.SignalVelocity:    w.Velocity * s.Velocity,
		model.SignalPersonalFit: w.PersonalFit * s.PersonalFit,
		model.SignalLabPrior:    w.LabPrior * s.LabPrior,
		model.SignalMathPenalty: -w.MathPenalty * s.MathPenalty,
	}

	var final float64
	for _, name := range model.Signals {
		final += why[name]
	}
	return clamp01(final), why
}
