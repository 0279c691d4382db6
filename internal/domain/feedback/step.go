package feedback

import (
	"fmt"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/vector"
)

// DefaultLearningRate is the weight a single feedback event carries in the
// exponential moving average.
const DefaultLearningRate = 0.1

// Step applies one EMA update with the default learning rate.
func Step(current, paper model.Embedding, action model.Action) (model.Embedding, error) {
	return StepWithRate(current, paper, action, DefaultLearningRate)
}

// StepWithRate moves current towards (positive action) or away from
// (negative action) paper and re-normalizes to unit length:
//
//	next = normalize((1-rate) x current + rate x sign x paper)
//
// An empty current vector stands for the zero vector of paper's dimension.
// The result is always a new slice.
func StepWithRate(current, paper model.Embedding, action model.Action, rate float64) (model.Embedding, error) {
	if len(current) == 0 {
		current = make(model.Embedding, len(paper))
	}
	if len(current) != len(paper) {
		return nil, fmt.Errorf("interest vector has %d dimensions, paper has %d: %w",
			len(current), len(paper), model.ErrLengthMismatch)
	}

	sign := action.Sign()
	next := make(model.Embedding, len(paper))
	for i := range paper {
		next[i] = (1-rate)*current[i] + rate*sign*paper[i]
	}
	return vector.Normalize(next), nil
}
