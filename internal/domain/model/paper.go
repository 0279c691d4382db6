// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Embedding is a fixed-length vector. All embeddings compared with each other
// must share one dimensionality.
type Embedding []float64

// Clone returns an independent copy, or nil for a nil embedding.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// PaperStatus tracks how far a paper has moved through the pipeline.
type PaperStatus string

const (
	StatusFetched  PaperStatus = "fetched"
	StatusEnriched PaperStatus = "enriched"
	StatusRanked   PaperStatus = "ranked"
)

// Author is a paper author with an optional known affiliation.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// EvidenceFlags are methodological rigor indicators extracted by enrichment.
type EvidenceFlags struct {
	Baselines     bool
	Ablations     bool
	Code          bool
	Data          bool
	MultipleEvals bool
}

// Enrichment holds attributes derived from a paper by the external
// enrichment step. It is immutable input to scoring.
type Enrichment struct {
	Topics    []string
	Facets    []string
	Embedding Embedding
	MathDepth float64 // [0,1]
	Evidence  EvidenceFlags
}

// Paper is a research paper as seen by the ranking core.
type Paper struct {
	ID          string
	Title       string
	Abstract    string
	Authors     []Author
	PublishedAt time.Time
	Status      PaperStatus
	Enrichment  *Enrichment // nil until enriched
}

// Text is the searchable text of the paper: title and abstract.
func (p *Paper) Text() string {
	return strings.TrimSpace(p.Title + " " + p.Abstract)
}

// Embedding returns the enrichment embedding, or nil when absent.
func (p *Paper) Embedding() Embedding {
	if p.Enrichment == nil {
		return nil
	}
	return p.Enrichment.Embedding
}

// Clone deep-copies the paper so stores can hand out values safely.
func (p Paper) Clone() Paper {
	out := p
	out.Authors = append([]Author(nil), p.Authors...)
	if p.Enrichment != nil {
		e := *p.Enrichment
		e.Topics = append([]string(nil), p.Enrichment.Topics...)
		e.Facets = append([]string(nil), p.Enrichment.Facets...)
		e.Embedding = p.Enrichment.Embedding.Clone()
		out.Enrichment = &e
	}
	return out
}
