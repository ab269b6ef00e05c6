package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
	"github.com/sandevgo/stridemem/pkg/textsim"
)

const (
	DefaultRecallLimit = 5
	RecallCharBudget   = 1500
	// renderOverhead approximates the bullet and category label added to
	// each insight when it is rendered into a prompt.
	renderOverhead = 20

	poolMultiplier = 5
	minPoolSize    = 20

	exactCategoryBoost   = 0.25
	mentionCategoryBoost = 0.2
	maxRecencyBoost      = 0.15
	recencyHorizon       = 90 * 24 * time.Hour
	confidenceWeight     = 0.3
)

// ScoreBreakdown is the additive relevance of one insight.
type ScoreBreakdown struct {
	Overlap    float64
	Category   float64
	Recency    float64
	Confidence float64
}

func (s ScoreBreakdown) Total() float64 {
	return s.Overlap + s.Category + s.Recency + s.Confidence
}

// GetRelevantInsights ranks the subject's active insights against
// contextText and returns at most limit of them within the character budget.
// A non-empty pool always yields at least one insight.
func (e *Engine) GetRelevantInsights(ctx context.Context, subjectID, contextText string, limit int) ([]core.Insight, error) {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	now := e.now().UTC()

	pool, err := e.candidatePool(ctx, subjectID, now, limit)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	q := e.newQuery(contextText)
	scored := make([]core.Insight, 0, len(pool))
	for _, ins := range pool {
		if !ins.Active || ins.Expired(now) {
			continue
		}
		ins.Score = q.score(ins, now).Total()
		scored = append(scored, ins)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	out := selectWithinBudget(scored, limit, RecallCharBudget)
	// pool entries may be cached; callers get their own copies
	for i := range out {
		out[i] = out[i].Clone()
	}
	log.FromCtx(ctx).Debug().
		Str("subject", subjectID).
		Int("pool", len(pool)).
		Int("returned", len(out)).
		Msg("recalled insights")
	return out, nil
}

func (e *Engine) candidatePool(ctx context.Context, subjectID string, now time.Time, limit int) ([]core.Insight, error) {
	size := limit * poolMultiplier
	if size < minPoolSize {
		size = minPoolSize
	}

	key := fmt.Sprintf("%s|%d", subjectID, size)
	if e.pool != nil {
		if cached, ok := e.pool.Get(key); ok {
			return cached.([]core.Insight), nil
		}
	}

	pool, err := e.insights.ListCandidateInsights(ctx, subjectID, now, size)
	if err != nil {
		return nil, fmt.Errorf("list candidate insights: %w", err)
	}
	if e.pool != nil {
		e.pool.SetDefault(key, pool)
	}
	return pool, nil
}

type query struct {
	tables   *Tables
	words    map[string]struct{}
	lowered  string
	category core.Category
}

func (e *Engine) newQuery(contextText string) query {
	return query{
		tables:   e.tables,
		words:    textsim.ContentWords(contextText),
		lowered:  strings.ToLower(contextText),
		category: e.tables.InferCategory(contextText),
	}
}

func (q query) score(ins core.Insight, now time.Time) ScoreBreakdown {
	s := ScoreBreakdown{
		Overlap:    textsim.Jaccard(q.words, textsim.ContentWords(ins.Text)),
		Recency:    recencyBoost(ins.LastValidated, now),
		Confidence: ins.Confidence * confidenceWeight,
	}
	switch {
	case ins.Category == q.category:
		s.Category = exactCategoryBoost
	case q.tables.mentionsCategory(q.lowered, ins.Category):
		s.Category = mentionCategoryBoost
	}
	return s
}

// recencyBoost decays linearly from maxRecencyBoost at age zero to nothing
// at recencyHorizon.
func recencyBoost(lastValidated, now time.Time) float64 {
	age := now.Sub(lastValidated)
	if age <= 0 {
		return maxRecencyBoost
	}
	if age >= recencyHorizon {
		return 0
	}
	return maxRecencyBoost * (1 - float64(age)/float64(recencyHorizon))
}

func selectWithinBudget(ranked []core.Insight, limit, budget int) []core.Insight {
	out := make([]core.Insight, 0, min(limit, len(ranked)))
	used := 0
	for _, ins := range ranked {
		if len(out) >= limit {
			break
		}
		cost := renderedSize(ins)
		if len(out) > 0 && used+cost > budget {
			break
		}
		out = append(out, ins)
		used += cost
	}
	return out
}

func renderedSize(ins core.Insight) int {
	return utf8.RuneCountInString(ins.Text) + renderOverhead
}
