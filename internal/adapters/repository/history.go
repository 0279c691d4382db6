package repository

import (
	"fmt"
	"strings"

	"github.com/okian/curio/internal/domain/model"
)

// PositivePaperIDs returns the distinct papers a user acted on positively,
// in the order they first appeared.
func PositivePaperIDs(events []model.FeedbackEvent) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, ev := range events {
		if !ev.Action.Positive() {
			continue
		}
		if _, ok := seen[ev.PaperID]; ok {
			continue
		}
		seen[ev.PaperID] = struct{}{}
		ids = append(ids, ev.PaperID)
	}
	return ids
}

// BuildHistory averages the embeddings of the given papers into a centroid
// and collects their topics as historical keywords. Papers without an
// embedding only contribute topics. Embeddings of different dimensions
// return model.ErrLengthMismatch.
func BuildHistory(papers []model.Paper) (model.UserHistory, error) {
	var (
		sum      []float64
		count    int
		keywords []string
		seen     = make(map[string]struct{})
	)

	for i := range papers {
		p := &papers[i]
		if p.Enrichment == nil {
			continue
		}
		for _, t := range p.Enrichment.Topics {
			key := strings.ToLower(strings.TrimSpace(t))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				keywords = append(keywords, t)
			}
		}

		emb := p.Enrichment.Embedding
		if len(emb) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(emb))
		}
		if len(emb) != len(sum) {
			return model.UserHistory{}, fmt.Errorf("paper %s has %d dimensions, history has %d: %w",
				p.ID, len(emb), len(sum), model.ErrLengthMismatch)
		}
		for j, x := range emb {
			sum[j] += x
		}
		count++
	}

	var centroid model.Embedding
	if count > 0 {
		centroid = make(model.Embedding, len(sum))
		for j := range sum {
			centroid[j] = sum[j] / float64(count)
		}
	}
	return model.UserHistory{Centroid: centroid, Keywords: keywords}, nil
}
