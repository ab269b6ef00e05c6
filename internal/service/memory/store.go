package memory

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
	"github.com/sandevgo/stridemem/pkg/textsim"
)

type StoreResult struct {
	Inserted []core.Insight `json:"inserted"`
	Merged   []core.Insight `json:"merged"`
}

// ExtractAndStore extracts insights from messages and persists them.
func (e *Engine) ExtractAndStore(ctx context.Context, subjectID string, messages []core.Message) (StoreResult, error) {
	candidates := e.extractor.Extract(subjectID, messages)
	log.FromCtx(ctx).Debug().
		Str("subject", subjectID).
		Int("messages", len(messages)).
		Int("candidates", len(candidates)).
		Msg("extracted insight candidates")
	return e.Store(ctx, subjectID, candidates)
}

// Store merges each candidate into the closest active insight of the same
// category, or inserts it. The pass is not atomic: on error the candidates
// before the failing one stay committed.
func (e *Engine) Store(ctx context.Context, subjectID string, candidates []core.Insight) (StoreResult, error) {
	var res StoreResult
	if len(candidates) == 0 {
		return res, nil
	}
	defer e.invalidate(subjectID)

	logger := log.FromCtx(ctx).With().Str("subject", subjectID).Logger()

	existing, err := e.insights.ListActiveInsights(ctx, subjectID, "")
	if err != nil {
		return res, fmt.Errorf("list active insights: %w", err)
	}
	words := make([]map[string]struct{}, len(existing))
	for i, ex := range existing {
		words[i] = textsim.ContentWords(ex.Text)
	}

	now := e.now().UTC()
	for _, c := range candidates {
		cw := textsim.ContentWords(c.Text)
		best, bestSim := -1, 0.0
		for i, ex := range existing {
			if ex.Category != c.Category {
				continue
			}
			if sim := textsim.Jaccard(cw, words[i]); sim > bestSim {
				best, bestSim = i, sim
			}
		}

		if best >= 0 && bestSim >= StoreSimilarityThreshold {
			merged := mergeInsight(existing[best], c, now)
			if err := e.insights.UpdateInsight(ctx, merged); err != nil {
				return res, fmt.Errorf("update insight %s: %w", merged.ID, err)
			}
			merged.Version++
			existing[best] = merged
			words[best] = textsim.ContentWords(merged.Text)
			res.Merged = append(res.Merged, merged)
			logger.Debug().
				Str("id", merged.ID).
				Float64("similarity", bestSim).
				Msg("merged insight")
			continue
		}

		ins := newInsight(subjectID, c, now)
		if err := e.insights.InsertInsight(ctx, ins); err != nil {
			return res, fmt.Errorf("insert insight: %w", err)
		}
		res.Inserted = append(res.Inserted, ins)
		logger.Debug().Str("id", ins.ID).Str("category", string(ins.Category)).Msg("stored insight")
	}

	logger.Info().
		Int("inserted", len(res.Inserted)).
		Int("merged", len(res.Merged)).
		Msg("insights stored")
	return res, nil
}

func newInsight(subjectID string, c core.Insight, now time.Time) core.Insight {
	ins := c
	ins.ID = uuid.NewString()
	ins.SubjectID = subjectID
	ins.Active = true
	ins.Version = 1
	ins.Score = 0
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = now
	}
	if ins.LastValidated.IsZero() {
		ins.LastValidated = now
	}
	if ins.Source == "" {
		ins.Source = core.SourceInferred
	}
	return ins
}

// mergeInsight refreshes old with cand. The candidate's text wins when it is
// longer or more confident.
func mergeInsight(old, cand core.Insight, now time.Time) core.Insight {
	m := old
	if len(cand.Text) > len(old.Text) || cand.Confidence > old.Confidence {
		m.Text = cand.Text
		if cand.Excerpt != "" {
			m.Excerpt = cand.Excerpt
		}
		if cand.Subcategory != "" {
			m.Subcategory = cand.Subcategory
		}
	}
	if cand.Confidence > m.Confidence {
		m.Confidence = cand.Confidence
	}
	if cand.Source == core.SourceExplicit {
		m.Source = core.SourceExplicit
	}
	if cand.ExpiresAt != nil {
		m.ExpiresAt = cand.ExpiresAt
	}
	m.LastValidated = now
	m.Active = true

	if len(old.Metadata) > 0 || len(cand.Metadata) > 0 {
		md := make(map[string]any, len(old.Metadata)+len(cand.Metadata))
		maps.Copy(md, old.Metadata)
		maps.Copy(md, cand.Metadata)
		m.Metadata = md
	}
	return m
}

// Forget soft-deactivates one insight.
func (e *Engine) Forget(ctx context.Context, id string) error {
	if err := e.insights.DeactivateInsight(ctx, id); err != nil {
		return fmt.Errorf("deactivate insight %s: %w", id, err)
	}
	if e.pool != nil {
		e.pool.Flush()
	}
	return nil
}
