package artifact

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// ExcerptGenerator summarizes by taking the leading sentences of the input.
// It stands in for model-backed generators and only handles KindSummary.
type ExcerptGenerator struct {
	Sentences int
}

// Generate returns the first Sentences sentences (default 2) of input.
func (g ExcerptGenerator) Generate(_ context.Context, kind Kind, input []byte) ([]byte, error) {
	if kind != KindSummary {
		return nil, fmt.Errorf("excerpt generator cannot produce %q", kind)
	}
	n := g.Sentences
	if n <= 0 {
		n = 2
	}

	text := strings.Join(strings.Fields(string(input)), " ")
	var b strings.Builder
	count := 0
	for i, r := range text {
		b.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next < len(text) && !unicode.IsSpace(rune(text[next])) {
			continue
		}
		count++
		if count == n {
			break
		}
	}
	return []byte(strings.TrimSpace(b.String())), nil
}
