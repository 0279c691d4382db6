package loadgen

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/curio/pkg/logger"
)

var (
	topics  = []string{"llm", "retrieval", "vision", "rl", "theory", "systems", "speech", "graphs"}
	facets  = []string{"benchmark", "method", "survey", "dataset", "position"}
	actions = []string{"save", "thumbs_up", "thumbs_down", "dismiss", "hide"}
)

// generator produces deterministic synthetic data for one run.
type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(seed uint64, now time.Time) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

// userIDs returns stable synthetic user ids.
func userIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "user-" + strconv.Itoa(i+1)
	}
	return ids
}

// papers creates n enriched papers published within the last day.
func (g *generator) papers(n, dim int) []Paper {
	out := make([]Paper, n)
	for i := range out {
		topic := topics[g.rng.IntN(len(topics))]
		out[i] = Paper{
			ID:          "paper-" + strconv.Itoa(i+1),
			Title:       fmt.Sprintf("On %s, part %d", topic, i+1),
			Abstract:    fmt.Sprintf("We study %s. Our method improves prior results. We release code and data.", topic),
			PublishedAt: g.now.Add(-time.Duration(g.rng.IntN(20)+1) * time.Hour).UTC(),
			Enrichment: Enrichment{
				Topics:    []string{topic},
				Facets:    []string{facets[g.rng.IntN(len(facets))]},
				Embedding: g.unitVector(dim),
				MathDepth: math.Round(g.rng.Float64()*100) / 100,
				Evidence: Evidence{
					Baselines:     g.rng.IntN(2) == 0,
					Ablations:     g.rng.IntN(2) == 0,
					Code:          g.rng.IntN(3) == 0,
					Data:          g.rng.IntN(3) == 0,
					MultipleEvals: g.rng.IntN(2) == 0,
				},
			},
		}
	}
	return out
}

// profile gives a user a couple of topics to include.
func (g *generator) profile() Profile {
	first := g.rng.IntN(len(topics))
	second := (first + 1 + g.rng.IntN(len(topics)-1)) % len(topics)
	return Profile{
		IncludeTopics:  []string{topics[first], topics[second]},
		ScoreThreshold: 0.1,
		NoiseCap:       10,
	}
}

// feedback spreads n events over users and papers with unique ids.
func (g *generator) feedback(ctx context.Context, n int, users []string, papers []Paper) []Feedback {
	out := make([]Feedback, 0, n)
	if len(users) == 0 || len(papers) == 0 {
		return out
	}
	ts := g.now.UTC().Format(time.RFC3339)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		out = append(out, Feedback{
			EventID: uuid.NewString(),
			UserID:  users[g.rng.IntN(len(users))],
			PaperID: papers[g.rng.IntN(len(papers))].ID,
			Action:  actions[g.rng.IntN(len(actions))],
			TS:      ts,
		})
	}
	logger.Get().Debug(ctx, "generated feedback", logger.Int("count", len(out)))
	return out
}

func (g *generator) unitVector(dim int) []float64 {
	v := make([]float64, dim)
	var norm float64
	for i := range v {
		v[i] = g.rng.NormFloat64()
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}
