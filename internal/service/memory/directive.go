package memory

import (
	"strings"

	"github.com/sandevgo/stridemem/internal/core"
)

// directiveInsights fires on every occurrence of every directive phrase.
func (e *Extractor) directiveInsights(content string) []core.Insight {
	source, lowered := lowerForMatch(content)

	var out []core.Insight
	for _, d := range e.tables.Directives {
		from := 0
		for {
			idx := strings.Index(lowered[from:], d.Phrase)
			if idx < 0 {
				break
			}
			start := from + idx + len(d.Phrase)
			from = start

			text := directiveText(source[start:])
			if len(text) < minDirectiveLen {
				continue
			}
			out = append(out, core.Insight{
				Category:   e.tables.InferCategory(text),
				Text:       text,
				Confidence: d.Confidence,
				Source:     core.SourceExplicit,
				Excerpt:    truncate(content, maxExcerptLen),
				Metadata:   map[string]any{"directive": d.Phrase},
			})
		}
	}
	return out
}

// directiveText takes everything up to the next sentence terminator, at most
// maxWindowLen bytes, without leading separators or a leading "that".
func directiveText(rest string) string {
	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if isTerminator(rest, i) {
			end = i
			break
		}
	}
	if end > maxWindowLen {
		end = maxWindowLen
	}
	_, end = alignRunes(rest, 0, end)

	text := strings.TrimLeft(rest[:end], " \t:,-")
	if len(text) >= 5 && strings.EqualFold(text[:5], "that ") {
		text = text[5:]
	}
	return strings.TrimSpace(text)
}
