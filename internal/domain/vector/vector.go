// Package vector implements the similarity primitives shared by scoring,
// feedback and digest selection.
//
// All functions are pure. Vectors of different lengths are never padded or
// truncated: any mismatch is reported as ErrLengthMismatch.
package vector

import (
	"fmt"
	"math"
)

// DotProduct returns the sum of element-wise products of a and b.
func DotProduct(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dot product %d vs %d: %w", len(a), len(b), ErrLengthMismatch)
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot, nil
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b.
//
// When normalize is false the result lies in [-1, 1]. When normalize is true
// it is mapped to [0, 1] as (cos+1)/2, so orthogonal vectors score 0.5 and
// opposite vectors score 0. A zero-magnitude input yields 0 in both modes.
func CosineSimilarity(a, b []float64, normalize bool) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity %d vs %d: %w", len(a), len(b), ErrLengthMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push |cos| marginally past 1.
	cos = math.Max(-1, math.Min(1, cos))
	if normalize {
		return (cos + 1) / 2, nil
	}
	return cos, nil
}

// Normalize returns a unit-length copy of v. A zero vector maps to a new
// zero vector of the same length.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	m := Magnitude(v)
	if m == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / m
	}
	return out
}

// IsZero reports whether v is empty or has zero magnitude.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
