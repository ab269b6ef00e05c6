package memory

import (
	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/textsim"
)

// The two thresholds differ on purpose: phrasing drifts more between
// sessions than within one extraction batch.
const (
	BatchSimilarityThreshold = 0.6
	StoreSimilarityThreshold = 0.5
)

// Deduplicate greedily collapses same-category candidates whose content
// words overlap by at least threshold, keeping the stronger one in the slot
// of the first.
func Deduplicate(candidates []core.Insight, threshold float64) []core.Insight {
	accepted := make([]core.Insight, 0, len(candidates))
	words := make([]map[string]struct{}, 0, len(candidates))

	for _, c := range candidates {
		cw := textsim.ContentWords(c.Text)
		dup := -1
		for i, a := range accepted {
			if a.Category != c.Category {
				continue
			}
			if textsim.Jaccard(cw, words[i]) >= threshold {
				dup = i
				break
			}
		}

		if dup < 0 {
			accepted = append(accepted, c)
			words = append(words, cw)
			continue
		}
		if stronger(c, accepted[dup]) {
			accepted[dup] = c
			words[dup] = cw
		}
	}
	return accepted
}

// stronger prefers higher confidence, then longer text.
func stronger(a, b core.Insight) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return len(a.Text) > len(b.Text)
}
