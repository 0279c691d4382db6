package scoring

import "github.com/okian/curio/internal/domain/model"

// VelocitySignal estimates how fast attention around a paper is growing.
// Implementations must return a value in [0,1]; the scorer clamps anyway.
type VelocitySignal interface {
	Velocity(paper model.Paper) float64
}

// ConstantVelocity is the placeholder velocity used until citation and
// discussion velocity are tracked.
type ConstantVelocity float64

// Velocity returns the constant value.
func (c ConstantVelocity) Velocity(model.Paper) float64 {
	return float64(c)
}

// VelocityFunc adapts a function to VelocitySignal.
type VelocityFunc func(paper model.Paper) float64

// Velocity calls f.
func (f VelocityFunc) Velocity(paper model.Paper) float64 {
	return f(paper)
}
