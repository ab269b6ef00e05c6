package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
)

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (r *MessagesRepo) AddMessage(ctx context.Context, subjectID string, msg core.Message) error {
	query := `INSERT INTO messages (subject_id, role, content) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, subjectID, msg.Role, msg.Content); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *MessagesRepo) GetMessages(ctx context.Context, subjectID string, limit int) ([]core.Message, error) {
	// Fetch the LAST 'limit' messages by ordering DESC
	query := `SELECT role, content FROM messages WHERE subject_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var msg core.Message
		var content sql.NullString
		if err := rows.Scan(&msg.Role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Content = content.String
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Back to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(messages)).Msg("loaded history messages")
	return messages, nil
}

func (r *MessagesRepo) GetUnextractedMessages(ctx context.Context, limit int) ([]core.StoredMessage, error) {
	query := `
		SELECT id, subject_id, role, content, created_at
		FROM messages
		WHERE extracted = 0
		ORDER BY id ASC
		LIMIT ?`

	return r.queryStored(ctx, query, limit)
}

func (r *MessagesRepo) ListPendingSubjects(ctx context.Context) ([]string, error) {
	query := `
		SELECT subject_id
		FROM messages
		WHERE extracted = 0
		GROUP BY subject_id
		ORDER BY MIN(id) ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *MessagesRepo) GetSubjectUnextracted(ctx context.Context, subjectID string, afterID int64, limit int) ([]core.StoredMessage, error) {
	query := `
		SELECT id, subject_id, role, content, created_at
		FROM messages
		WHERE subject_id = ? AND extracted = 0 AND id > ?
		ORDER BY id ASC
		LIMIT ?`

	return r.queryStored(ctx, query, subjectID, afterID, limit)
}

func (r *MessagesRepo) queryStored(ctx context.Context, query string, args ...any) ([]core.StoredMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unextracted messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.StoredMessage
	for rows.Next() {
		var m core.StoredMessage
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessagesRepo) MarkMessagesExtracted(ctx context.Context, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}

	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}
	query := fmt.Sprintf("UPDATE messages SET extracted = 1 WHERE id IN (%s)", placeholders(len(args)))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark messages extracted: %w", err)
	}
	return nil
}
