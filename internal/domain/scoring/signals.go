package scoring

import (
	"math"
	"strings"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/vector"
)

// Evidence flag weights. They sum to 1.
const (
	evidenceBaselines     = 0.30
	evidenceAblations     = 0.20
	evidenceCode          = 0.20
	evidenceData          = 0.15
	evidenceMultipleEvals = 0.15
)

// Personal fit blend.
const (
	fitSimilarityWeight = 0.7
	fitRuleWeight       = 0.3
	fitTopicBonus       = 0.20
	fitKeywordBonus     = 0.10
)

// Novelty blend.
const (
	noveltySimilarityWeight = 0.5
	noveltyKeywordWeight    = 0.5
)

// Evidence scores methodological rigor from the five boolean flags.
// Missing flags contribute nothing; there is no partial credit.
func Evidence(f model.EvidenceFlags) float64 {
	var score float64
	if f.Baselines {
		score += evidenceBaselines
	}
	if f.Ablations {
		score += evidenceAblations
	}
	if f.Code {
		score += evidenceCode
	}
	if f.Data {
		score += evidenceData
	}
	if f.MultipleEvals {
		score += evidenceMultipleEvals
	}
	return clamp01(score)
}

// PersonalFit blends embedding similarity with explicit include rules:
// 0.7 x normalized cosine + 0.3 x min(ruleBonus, 1).
func PersonalFit(
	paperEmbedding, userEmbedding model.Embedding,
	paperTopics []string,
	paperText string,
	includeTopics, includeKeywords []string,
) (float64, error) {
	sim, err := normalizedSimilarity(paperEmbedding, userEmbedding)
	if err != nil {
		return 0, err
	}
	return fitSimilarityWeight*sim + fitRuleWeight*ruleBonus(paperTopics, paperText, includeTopics, includeKeywords), nil
}

// ruleBonus adds 0.20 per paper topic on the include list and 0.10 per
// include keyword found in the text, capped at 1.
func ruleBonus(paperTopics []string, paperText string, includeTopics, includeKeywords []string) float64 {
	include := make(map[string]struct{}, len(includeTopics))
	for _, t := range includeTopics {
		include[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var bonus float64
	for _, t := range paperTopics {
		if _, ok := include[strings.ToLower(strings.TrimSpace(t))]; ok {
			bonus += fitTopicBonus
		}
	}

	text := strings.ToLower(paperText)
	for _, kw := range includeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			bonus += fitKeywordBonus
		}
	}
	return math.Min(bonus, 1)
}

// Novelty measures how far a paper sits from what the user already knows.
// A user with no centroid and no historical keywords finds everything novel.
func Novelty(paperEmbedding model.Embedding, paperText string, history model.UserHistory) (float64, error) {
	if vector.IsZero(history.Centroid) && len(history.Keywords) == 0 {
		return 1.0, nil
	}

	sim, err := normalizedSimilarity(paperEmbedding, history.Centroid)
	if err != nil {
		return 0, err
	}
	novelty := noveltySimilarityWeight*(1-sim) + noveltyKeywordWeight*keywordNovelty(paperText, history.Keywords)
	return clamp01(novelty), nil
}

// keywordNovelty is the fraction of the text's tokens that do not appear
// inside any historical keyword. "machine" is not novel when "machine
// learning" is historical.
func keywordNovelty(text string, keywords []string) float64 {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return 1.0
	}

	known := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			known = append(known, kw)
		}
	}

	novel := 0
	for _, tok := range tokens {
		seen := false
		for _, kw := range known {
			if strings.Contains(kw, tok) {
				seen = true
				break
			}
		}
		if !seen {
			novel++
		}
	}
	return float64(novel) / float64(len(tokens))
}

// LabPrior is 1 when any author's affiliation mentions a boosted lab.
func LabPrior(authors []model.Author, boostedLabs []string) float64 {
	if len(boostedLabs) == 0 {
		return 0
	}
	for _, a := range authors {
		aff := strings.ToLower(a.Affiliation)
		if aff == "" {
			continue
		}
		for _, lab := range boostedLabs {
			if lab = strings.ToLower(strings.TrimSpace(lab)); lab != "" && strings.Contains(aff, lab) {
				return 1
			}
		}
	}
	return 0
}

// MathPenalty is the math-heaviness penalty, min(depth x sensitivity, 1).
func MathPenalty(mathDepth, sensitivity float64) float64 {
	return clamp01(mathDepth * sensitivity)
}

// normalizedSimilarity treats an absent vector like a zero vector, which
// cosine maps to 0. Two present vectors must agree in length.
func normalizedSimilarity(a, b model.Embedding) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	return vector.CosineSimilarity(a, b, true)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
