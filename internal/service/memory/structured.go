package memory

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sandevgo/stridemem/internal/core"
)

const (
	raceResultConfidence = 0.92
	mileageConfidence    = 0.82
)

// StructuredParser recognises one fixed sentence shape and yields at most one
// insight per text. Parsers run independently of the keyword rules.
type StructuredParser interface {
	Name() string
	Parse(text string) (core.Insight, bool)
}

func DefaultStructuredParsers() []StructuredParser {
	return []StructuredParser{
		RaceResultParser{},
		WeeklyMileageParser{},
	}
}

var raceResultRE = regexp.MustCompile(
	`(?i)\b(ran|finished|completed|raced|did)\s+(?:a|an|the|my)\s+((?:half[\s-])?[\w.]+)\s+in\s+(\d{1,2}:\d{2}(?::\d{2})?)\b`,
)

// RaceResultParser matches "ran a marathon in 3:45:22" and friends.
type RaceResultParser struct{}

func (RaceResultParser) Name() string { return "race_result" }

func (RaceResultParser) Parse(text string) (core.Insight, bool) {
	m := raceResultRE.FindStringSubmatchIndex(text)
	if m == nil {
		return core.Insight{}, false
	}
	return core.Insight{
		Category:    core.CategoryFeedback,
		Subcategory: "race_result",
		Text:        contextWindow(text, m[0], m[1]),
		Confidence:  raceResultConfidence,
		Metadata: map[string]any{
			"verb":     strings.ToLower(text[m[2]:m[3]]),
			"distance": strings.ToLower(text[m[4]:m[5]]),
			"time":     text[m[6]:m[7]],
		},
	}, true
}

var weeklyMileageRE = regexp.MustCompile(
	`(?i)\b(?:running|averaging|doing|at)\s+(?:about|around|roughly|approximately)?\s*(\d+(?:\.\d+)?)\s*(miles|mile|mi|kilometers|kilometres|km)\s+(?:per|a)\s+week\b`,
)

// WeeklyMileageParser matches "running about 30 miles a week".
type WeeklyMileageParser struct{}

func (WeeklyMileageParser) Name() string { return "weekly_mileage" }

func (WeeklyMileageParser) Parse(text string) (core.Insight, bool) {
	m := weeklyMileageRE.FindStringSubmatchIndex(text)
	if m == nil {
		return core.Insight{}, false
	}
	value, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil {
		return core.Insight{}, false
	}
	return core.Insight{
		Category:    core.CategoryPattern,
		Subcategory: "mileage",
		Text:        contextWindow(text, m[0], m[1]),
		Confidence:  mileageConfidence,
		Metadata: map[string]any{
			"value": value,
			"unit":  normalizeUnit(text[m[4]:m[5]]),
		},
	}, true
}

func normalizeUnit(u string) string {
	switch strings.ToLower(u) {
	case "mile", "miles", "mi":
		return "miles"
	default:
		return "km"
	}
}
