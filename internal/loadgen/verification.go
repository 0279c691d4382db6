package loadgen

import (
	"fmt"
)

// verifyBriefing checks the structural guarantees of a generated briefing.
func verifyBriefing(b Briefing, known map[string]bool, noiseCap int) error {
	if b.PaperCount != len(b.PaperIDs) {
		return fmt.Errorf("briefing for %s: paper_count %d does not match %d ids", b.UserID, b.PaperCount, len(b.PaperIDs))
	}
	if b.ExploitCount+b.ExploreCount != b.PaperCount {
		return fmt.Errorf("briefing for %s: exploit %d + explore %d != %d", b.UserID, b.ExploitCount, b.ExploreCount, b.PaperCount)
	}
	if noiseCap > 0 && b.PaperCount > noiseCap {
		return fmt.Errorf("briefing for %s: %d papers exceeds noise cap %d", b.UserID, b.PaperCount, noiseCap)
	}
	if b.AvgScore < 0 || b.AvgScore > 1 {
		return fmt.Errorf("briefing for %s: avg_score %.3f outside [0,1]", b.UserID, b.AvgScore)
	}

	seen := make(map[string]bool, len(b.PaperIDs))
	for _, id := range b.PaperIDs {
		if seen[id] {
			return fmt.Errorf("briefing for %s: duplicate paper %s", b.UserID, id)
		}
		seen[id] = true
		if !known[id] {
			return fmt.Errorf("briefing for %s: unknown paper %s", b.UserID, id)
		}
	}
	return nil
}
