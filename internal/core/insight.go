package core

import (
	"errors"
	"maps"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

type Category string

const (
	CategoryInjury     Category = "injury"
	CategoryGoal       Category = "goal"
	CategoryFeedback   Category = "feedback"
	CategoryPreference Category = "preference"
	CategoryConstraint Category = "constraint"
	CategoryPattern    Category = "pattern"
)

// Categories lists every category in a fixed order. Iteration order matters
// wherever ties are broken.
var Categories = []Category{
	CategoryInjury,
	CategoryGoal,
	CategoryFeedback,
	CategoryPreference,
	CategoryConstraint,
	CategoryPattern,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Source string

const (
	SourceExplicit Source = "explicit"
	SourceInferred Source = "inferred"
)

// Insight is a single durable fact about a subject.
type Insight struct {
	ID            string         `json:"id"`
	SubjectID     string         `json:"subject_id"`
	Category      Category       `json:"category"`
	Subcategory   string         `json:"subcategory,omitempty"`
	Text          string         `json:"text"`
	Confidence    float64        `json:"confidence"`
	Source        Source         `json:"source"`
	Excerpt       string         `json:"excerpt,omitempty"`
	Active        bool           `json:"active"`
	CreatedAt     time.Time      `json:"created_at"`
	LastValidated time.Time      `json:"last_validated"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Version       int64          `json:"version"`

	// Score is the relevance computed at retrieval time. Never persisted.
	Score float64 `json:"score,omitempty"`
}

// Clone returns a copy that shares no map or pointer with i.
func (i Insight) Clone() Insight {
	i.Metadata = maps.Clone(i.Metadata)
	if i.ExpiresAt != nil {
		at := *i.ExpiresAt
		i.ExpiresAt = &at
	}
	return i
}

// Expired reports whether the insight has an expiry at or before now.
func (i Insight) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

type ConversationSummary struct {
	ID             int64     `json:"id"`
	SubjectID      string    `json:"subject_id"`
	Date           string    `json:"date"` // YYYY-MM-DD
	MessageCount   int       `json:"message_count"`
	Summary        string    `json:"summary"`
	KeyDecisions   []string  `json:"key_decisions"`
	KeyPreferences []string  `json:"key_preferences"`
	KeyFeedback    []string  `json:"key_feedback"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"created_at"`
}
