package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/stridemem/internal/core"
)

type SummariesRepo struct {
	db *sql.DB
}

func NewSummariesRepo(db *sql.DB) *SummariesRepo {
	return &SummariesRepo{db: db}
}

func (r *SummariesRepo) UpsertSummary(ctx context.Context, s core.ConversationSummary) error {
	lists := make([]string, 0, 4)
	for _, l := range [][]string{s.KeyDecisions, s.KeyPreferences, s.KeyFeedback, s.Tags} {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("failed to marshal summary list: %w", err)
		}
		lists = append(lists, string(b))
	}

	query := `
		INSERT INTO conversation_summaries
			(subject_id, date, message_count, summary, key_decisions, key_preferences, key_feedback, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id, date) DO UPDATE SET
			message_count = excluded.message_count,
			summary = excluded.summary,
			key_decisions = excluded.key_decisions,
			key_preferences = excluded.key_preferences,
			key_feedback = excluded.key_feedback,
			tags = excluded.tags,
			created_at = excluded.created_at`

	_, err := r.db.ExecContext(ctx, query,
		s.SubjectID, s.Date, s.MessageCount, s.Summary,
		lists[0], lists[1], lists[2], lists[3], toMillis(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

// ListSummaries returns the newest summaries first.
func (r *SummariesRepo) ListSummaries(ctx context.Context, subjectID string, limit int) ([]core.ConversationSummary, error) {
	query := `
		SELECT id, subject_id, date, message_count, summary, key_decisions, key_preferences, key_feedback, tags, created_at
		FROM conversation_summaries
		WHERE subject_id = ?
		ORDER BY date DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []core.ConversationSummary
	for rows.Next() {
		var (
			s                                core.ConversationSummary
			decisions, prefs, feedback, tags string
			createdAt                        int64
		)
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.Date, &s.MessageCount, &s.Summary,
			&decisions, &prefs, &feedback, &tags, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		s.KeyDecisions = decodeList(decisions)
		s.KeyPreferences = decodeList(prefs)
		s.KeyFeedback = decodeList(feedback)
		s.Tags = decodeList(tags)
		s.CreatedAt = fromMillis(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SummariesRepo) PruneSummaries(ctx context.Context, subjectID string, keep int) (int64, error) {
	query := `
		DELETE FROM conversation_summaries
		WHERE subject_id = ? AND id NOT IN (
			SELECT id FROM conversation_summaries
			WHERE subject_id = ?
			ORDER BY date DESC, id DESC
			LIMIT ?
		)`

	res, err := r.db.ExecContext(ctx, query, subjectID, subjectID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune summaries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SummariesRepo) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT subject_id FROM conversation_summaries ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func decodeList(raw string) []string {
	var l []string
	if err := json.Unmarshal([]byte(raw), &l); err != nil || len(l) == 0 {
		return nil
	}
	return l
}
