package digest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/curio/internal/domain/model"
	"github.com/okian/curio/internal/domain/vector"
)

// floorEpsilon absorbs float error in noiseCap x (1 - rate) so that, for
// example, 10 x 0.7 floors to 7 and not 6.
const floorEpsilon = 1e-9

// noEmbeddingDiversity is the diversity assigned to papers that cannot be
// compared with the interest vector.
const noEmbeddingDiversity = 0.5

// Selection is the composed digest before it is persisted.
type Selection struct {
	Exploit []model.Candidate
	Explore []model.Candidate
}

// Candidates returns exploit followed by explore.
func (s Selection) Candidates() []model.Candidate {
	out := make([]model.Candidate, 0, len(s.Exploit)+len(s.Explore))
	out = append(out, s.Exploit...)
	return append(out, s.Explore...)
}

// PaperIDs lists the selected papers, exploit first.
func (s Selection) PaperIDs() []string {
	all := s.Candidates()
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.Paper.ID
	}
	return ids
}

// AvgScore is the mean final score of the selection, 0 when empty.
func (s Selection) AvgScore() float64 {
	all := s.Candidates()
	if len(all) == 0 {
		return 0
	}
	var sum float64
	for _, c := range all {
		sum += c.Score.FinalScore
	}
	return sum / float64(len(all))
}

// Split returns how many slots go to exploitation and exploration.
func Split(noiseCap int, explorationRate float64) (exploit, explore int) {
	if noiseCap <= 0 {
		return 0, 0
	}
	exploit = int(math.Floor(float64(noiseCap)*(1-explorationRate) + floorEpsilon))
	if exploit > noiseCap {
		exploit = noiseCap
	}
	return exploit, noiseCap - exploit
}

// Compose selects the digest from a candidate pool. Candidates below the
// profile threshold or matching an exclusion are dropped. The rest are
// ordered by final score, the top slice is exploited, and the remaining
// slots go to the candidates least aligned with the interest vector.
func Compose(pool []model.Candidate, profile model.UserProfile) (Selection, error) {
	eligible := filter(pool, profile)
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Score.FinalScore > eligible[j].Score.FinalScore
	})

	exploitN, exploreN := Split(profile.NoiseCap, profile.ClampedExplorationRate())
	if exploitN > len(eligible) {
		exploitN = len(eligible)
	}

	sel := Selection{Exploit: eligible[:exploitN:exploitN]}
	explore, err := pickDiverse(eligible[exploitN:], profile.InterestVector, exploreN)
	if err != nil {
		return Selection{}, err
	}
	sel.Explore = explore
	return sel, nil
}

// pickDiverse greedily takes up to n candidates maximizing 1 - |cos| with
// the interest vector. Ties keep the earlier candidate.
func pickDiverse(rest []model.Candidate, interest model.Embedding, n int) ([]model.Candidate, error) {
	if n <= 0 || len(rest) == 0 {
		return nil, nil
	}

	diversity := make([]float64, len(rest))
	for i := range rest {
		d, err := diversityOf(rest[i], interest)
		if err != nil {
			return nil, err
		}
		diversity[i] = d
	}

	taken := make([]bool, len(rest))
	out := make([]model.Candidate, 0, n)
	for len(out) < n {
		best := -1
		for i := range rest {
			if taken[i] {
				continue
			}
			if best < 0 || diversity[i] > diversity[best] {
				best = i
			}
		}
		if best < 0 {
			break
		}
		taken[best] = true
		out = append(out, rest[best])
	}
	return out, nil
}

func diversityOf(c model.Candidate, interest model.Embedding) (float64, error) {
	emb := c.Paper.Embedding()
	if len(emb) == 0 {
		return noEmbeddingDiversity, nil
	}
	if len(interest) == 0 {
		// A zero interest vector has cosine 0 with everything.
		return 1, nil
	}
	cos, err := vector.CosineSimilarity(emb, interest, false)
	if err != nil {
		return 0, fmt.Errorf("diversity of paper %s: %w", c.Paper.ID, err)
	}
	return 1 - math.Abs(cos), nil
}

func filter(pool []model.Candidate, profile model.UserProfile) []model.Candidate {
	excludeTopics := make(map[string]struct{}, len(profile.ExcludeTopics))
	for _, t := range profile.ExcludeTopics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			excludeTopics[t] = struct{}{}
		}
	}
	excludeKeywords := make([]string, 0, len(profile.ExcludeKeywords))
	for _, kw := range profile.ExcludeKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			excludeKeywords = append(excludeKeywords, kw)
		}
	}

	out := make([]model.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Score.FinalScore < profile.ScoreThreshold {
			continue
		}
		if excluded(&c.Paper, excludeTopics, excludeKeywords) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func excluded(p *model.Paper, topics map[string]struct{}, keywords []string) bool {
	if p.Enrichment != nil {
		for _, t := range p.Enrichment.Topics {
			if _, ok := topics[strings.ToLower(strings.TrimSpace(t))]; ok {
				return true
			}
		}
	}
	if len(keywords) == 0 {
		return false
	}
	text := strings.ToLower(p.Text())
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
