package model

import "time"

// CandidateQuery selects digest candidates: enriched papers published at or
// after Since whose live score is at least MinScore.
type CandidateQuery struct {
	Since    time.Time
	MinScore float64
}

// VectorUpdate computes a new interest vector from the current one. It runs
// while the store holds the profile exclusively.
type VectorUpdate func(current Embedding) (Embedding, error)
