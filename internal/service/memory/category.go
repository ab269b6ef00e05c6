package memory

import (
	"strings"

	"github.com/sandevgo/stridemem/internal/core"
)

// InferCategory votes by keyword density. Zero hits or a tie at the top
// resolve to preference.
func (t *Tables) InferCategory(text string) core.Category {
	lowered := strings.ToLower(text)

	best := core.CategoryPreference
	bestHits := 0
	tied := false
	for _, c := range core.Categories {
		hits := countPresent(lowered, t.CategorySignals[c])
		switch {
		case hits > bestHits:
			best, bestHits, tied = c, hits, false
		case hits == bestHits && hits > 0:
			tied = true
		}
	}
	if bestHits == 0 || tied {
		return core.CategoryPreference
	}
	return best
}

// mentionsCategory reports whether text contains any signal keyword of c.
func (t *Tables) mentionsCategory(lowered string, c core.Category) bool {
	return containsAny(lowered, t.CategorySignals[c])
}
