package memory

import (
	"math"
	"strings"
	"time"

	"github.com/sandevgo/stridemem/internal/core"
)

const (
	maxConfidence     = 0.95
	boostStep         = 0.05
	maxBoost          = 0.15
	shortMessageBonus = 0.05
	shortMessageLen   = 120
)

// Extractor turns conversation messages into candidate insights. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	tables  *Tables
	parsers []StructuredParser
	now     func() time.Time
}

type ExtractorOption func(*Extractor)

func WithExtractorTables(t *Tables) ExtractorOption {
	return func(e *Extractor) {
		if t != nil {
			e.tables = t
		}
	}
}

// WithStructuredParsers replaces the default race-result and mileage parsers.
func WithStructuredParsers(parsers ...StructuredParser) ExtractorOption {
	return func(e *Extractor) {
		e.parsers = parsers
	}
}

func WithExtractorClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.now = now
	}
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		tables:  DefaultTables(),
		parsers: DefaultStructuredParsers(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs every extractor over the user messages and collapses
// near-duplicates within the batch.
func (e *Extractor) Extract(subjectID string, messages []core.Message) []core.Insight {
	now := e.now().UTC()

	var candidates []core.Insight
	for _, msg := range messages {
		if msg.Role != core.RoleUser || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		candidates = append(candidates, e.ruleInsights(msg.Content)...)
		candidates = append(candidates, e.directiveInsights(msg.Content)...)
		candidates = append(candidates, e.structuredInsights(msg.Content)...)
	}

	for i := range candidates {
		c := &candidates[i]
		c.SubjectID = subjectID
		c.Active = true
		c.CreatedAt = now
		c.LastValidated = now
	}

	return Deduplicate(candidates, BatchSimilarityThreshold)
}

// ruleInsights fires each rule at most once per message, on the first
// trigger in rule order that appears in the text.
func (e *Extractor) ruleInsights(content string) []core.Insight {
	source, lowered := lowerForMatch(content)

	var out []core.Insight
	for _, rule := range e.tables.Rules {
		for _, trig := range rule.Triggers {
			idx := strings.Index(lowered, trig)
			if idx < 0 {
				continue
			}
			window := contextWindow(source, idx, idx+len(trig))
			if len(window) >= minWindowLen {
				out = append(out, core.Insight{
					Category:    rule.Category,
					Subcategory: rule.Subcategory,
					Text:        window,
					Confidence:  ruleConfidence(rule, lowered, len(content)),
					Source:      core.SourceInferred,
					Excerpt:     truncate(content, maxExcerptLen),
					Metadata:    map[string]any{"rule": rule.Name, "trigger": trig},
				})
			}
			break
		}
	}
	return out
}

func ruleConfidence(rule Rule, lowered string, messageLen int) float64 {
	conf := rule.BaseConfidence
	conf += math.Min(maxBoost, boostStep*float64(countPresent(lowered, rule.Boosts)))
	if messageLen < shortMessageLen {
		conf += shortMessageBonus
	}
	return roundConfidence(math.Min(conf, maxConfidence))
}

func (e *Extractor) structuredInsights(content string) []core.Insight {
	var out []core.Insight
	for _, p := range e.parsers {
		ins, ok := p.Parse(content)
		if !ok {
			continue
		}
		ins.Source = core.SourceInferred
		ins.Excerpt = truncate(content, maxExcerptLen)
		if ins.Metadata == nil {
			ins.Metadata = map[string]any{}
		}
		ins.Metadata["parser"] = p.Name()
		out = append(out, ins)
	}
	return out
}

// roundConfidence keeps confidences at two decimals so that equal sums
// compare equal.
func roundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}
