package memory

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/stridemem/internal/core"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// defaultTables is parsed once at start-up and never mutated.
var defaultTables = mustParseTables(defaultRulesYAML)

// Rule is one keyword rule of the extractor.
type Rule struct {
	Name           string        `yaml:"name"`
	Category       core.Category `yaml:"category"`
	Subcategory    string        `yaml:"subcategory"`
	BaseConfidence float64       `yaml:"base_confidence"`
	Triggers       []string      `yaml:"triggers"`
	Boosts         []string      `yaml:"boosts"`
}

type Directive struct {
	Phrase     string  `yaml:"phrase"`
	Confidence float64 `yaml:"confidence"`
}

type TagRule struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// SummaryVocabulary drives the conversation summarizer. It is deliberately
// smaller than the rule table.
type SummaryVocabulary struct {
	Decisions   []string `yaml:"decisions"`
	Preferences []string `yaml:"preferences"`
	Progress    []string `yaml:"progress"`
	Commitments []string `yaml:"commitments"`
	Likes       []string `yaml:"likes"`
	Feedback    []string `yaml:"feedback"`
}

// Tables holds every keyword list the engine uses.
type Tables struct {
	Rules           []Rule                     `yaml:"rules"`
	Directives      []Directive                `yaml:"directives"`
	CategorySignals map[core.Category][]string `yaml:"category_signals"`
	Tags            []TagRule                  `yaml:"tags"`
	Summary         SummaryVocabulary          `yaml:"summary"`
}

// DefaultTables returns the embedded tables.
func DefaultTables() *Tables {
	return defaultTables
}

// LoadTables reads a rules file in the same format as the embedded one.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	t.normalize()
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func mustParseTables(data []byte) *Tables {
	t, err := ParseTables(data)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tables) normalize() {
	for i := range t.Rules {
		t.Rules[i].Triggers = lowerAll(t.Rules[i].Triggers)
		t.Rules[i].Boosts = lowerAll(t.Rules[i].Boosts)
	}
	for i := range t.Directives {
		t.Directives[i].Phrase = strings.ToLower(t.Directives[i].Phrase)
	}
	for c, words := range t.CategorySignals {
		t.CategorySignals[c] = lowerAll(words)
	}
	for i := range t.Tags {
		t.Tags[i].Keywords = lowerAll(t.Tags[i].Keywords)
	}
	v := &t.Summary
	v.Decisions = lowerAll(v.Decisions)
	v.Preferences = lowerAll(v.Preferences)
	v.Progress = lowerAll(v.Progress)
	v.Commitments = lowerAll(v.Commitments)
	v.Likes = lowerAll(v.Likes)
	v.Feedback = lowerAll(v.Feedback)
}

func (t *Tables) validate() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("rules: no extraction rules defined")
	}
	for _, r := range t.Rules {
		if !r.Category.Valid() {
			return fmt.Errorf("rule %q: unknown category %q", r.Name, r.Category)
		}
		if r.BaseConfidence <= 0 || r.BaseConfidence > 1 {
			return fmt.Errorf("rule %q: base confidence %.2f out of range", r.Name, r.BaseConfidence)
		}
		if len(r.Triggers) == 0 {
			return fmt.Errorf("rule %q: no triggers", r.Name)
		}
	}
	for _, d := range t.Directives {
		if d.Phrase == "" || d.Confidence <= 0 || d.Confidence > 1 {
			return fmt.Errorf("directive %q: invalid", d.Phrase)
		}
	}
	for c := range t.CategorySignals {
		if !c.Valid() {
			return fmt.Errorf("category signals: unknown category %q", c)
		}
	}
	return nil
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

// containsAny reports whether lowered contains at least one of words.
func containsAny(lowered string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

// countPresent counts the distinct words found in lowered.
func countPresent(lowered string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lowered, w) {
			n++
		}
	}
	return n
}
