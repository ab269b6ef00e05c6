package core

import (
	"context"
	"time"
)

type MessagesRepository interface {
	AddMessage(ctx context.Context, subjectID string, msg Message) error
	GetMessages(ctx context.Context, subjectID string, limit int) ([]Message, error)
	GetUnextractedMessages(ctx context.Context, limit int) ([]StoredMessage, error)
	// ListPendingSubjects returns subjects with unextracted messages, the one
	// waiting longest first.
	ListPendingSubjects(ctx context.Context) ([]string, error)
	// GetSubjectUnextracted pages a subject's unextracted messages in id
	// order, starting after afterID.
	GetSubjectUnextracted(ctx context.Context, subjectID string, afterID int64, limit int) ([]StoredMessage, error)
	MarkMessagesExtracted(ctx context.Context, messageIDs []int64) error
}

// InsightRepository is the keyed store behind the memory engine. It offers
// equality and range filtering only.
type InsightRepository interface {
	InsertInsight(ctx context.Context, insight Insight) error
	// UpdateInsight writes the record with the given ID. It fails with
	// ErrVersionConflict when the stored version differs from insight.Version.
	UpdateInsight(ctx context.Context, insight Insight) error
	// ListActiveInsights returns active insights of a subject; an empty
	// category matches all categories.
	ListActiveInsights(ctx context.Context, subjectID string, category Category) ([]Insight, error)
	// ListCandidateInsights returns active, non-expired insights ordered by
	// confidence and then last validation, newest first.
	ListCandidateInsights(ctx context.Context, subjectID string, now time.Time, limit int) ([]Insight, error)
	DeactivateInsight(ctx context.Context, id string) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteInsight(ctx context.Context, id string) error
}

type SummaryRepository interface {
	// UpsertSummary keeps one row per subject and date.
	UpsertSummary(ctx context.Context, summary ConversationSummary) error
	ListSummaries(ctx context.Context, subjectID string, limit int) ([]ConversationSummary, error)
	// PruneSummaries deletes all but the newest keep rows of a subject.
	PruneSummaries(ctx context.Context, subjectID string, keep int) (int64, error)
	ListSubjects(ctx context.Context) ([]string, error)
}

type StoredMessage struct {
	ID        int64     `json:"id"`
	SubjectID string    `json:"subject_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Extracted bool      `json:"extracted"`
}
