package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
)

const insightColumns = `id, subject_id, category, subcategory, text, confidence, source, excerpt,
	active, created_at, last_validated, expires_at, metadata, version`

type InsightsRepo struct {
	db *sql.DB
}

func NewInsightsRepo(db *sql.DB) *InsightsRepo {
	return &InsightsRepo{db: db}
}

func (r *InsightsRepo) InsertInsight(ctx context.Context, ins core.Insight) error {
	metadata, err := encodeMetadata(ins.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO insights (` + insightColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		ins.ID, ins.SubjectID, ins.Category, ins.Subcategory, ins.Text, ins.Confidence,
		ins.Source, ins.Excerpt, ins.Active, toMillis(ins.CreatedAt), toMillis(ins.LastValidated),
		nullMillis(ins.ExpiresAt), metadata, ins.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

func (r *InsightsRepo) UpdateInsight(ctx context.Context, ins core.Insight) error {
	metadata, err := encodeMetadata(ins.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE insights SET
			category = ?, subcategory = ?, text = ?, confidence = ?, source = ?, excerpt = ?,
			active = ?, last_validated = ?, expires_at = ?, metadata = ?, version = version + 1
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		ins.Category, ins.Subcategory, ins.Text, ins.Confidence, ins.Source, ins.Excerpt,
		ins.Active, toMillis(ins.LastValidated), nullMillis(ins.ExpiresAt), metadata,
		ins.ID, ins.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update insight: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM insights WHERE id = ?`, ins.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check insight: %w", err)
	}
	return core.ErrVersionConflict
}

func (r *InsightsRepo) ListActiveInsights(ctx context.Context, subjectID string, category core.Category) ([]core.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE subject_id = ? AND active = 1`
	args := []any{subjectID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return r.query(ctx, query, args...)
}

func (r *InsightsRepo) ListCandidateInsights(ctx context.Context, subjectID string, now time.Time, limit int) ([]core.Insight, error) {
	query := `
		SELECT ` + insightColumns + `
		FROM insights
		WHERE subject_id = ? AND active = 1 AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY confidence DESC, last_validated DESC
		LIMIT ?`

	return r.query(ctx, query, subjectID, toMillis(now), limit)
}

func (r *InsightsRepo) GetInsight(ctx context.Context, id string) (core.Insight, error) {
	list, err := r.query(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = ?`, id)
	if err != nil {
		return core.Insight{}, err
	}
	if len(list) == 0 {
		return core.Insight{}, core.ErrNotFound
	}
	return list[0], nil
}

func (r *InsightsRepo) DeactivateInsight(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE insights SET active = 0, version = version + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate insight: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *InsightsRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE insights SET active = 0, version = version + 1
		WHERE active = 1 AND expires_at IS NOT NULL AND expires_at <= ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired insights: %w", err)
	}
	return res.RowsAffected()
}

func (r *InsightsRepo) DeleteInsight(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM insights WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	return nil
}

func (r *InsightsRepo) query(ctx context.Context, query string, args ...any) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var out []core.Insight
	for rows.Next() {
		var (
			ins                  core.Insight
			createdAt, validated int64
			expiresAt            sql.NullInt64
			metadata             string
		)
		err := rows.Scan(
			&ins.ID, &ins.SubjectID, &ins.Category, &ins.Subcategory, &ins.Text, &ins.Confidence,
			&ins.Source, &ins.Excerpt, &ins.Active, &createdAt, &validated, &expiresAt,
			&metadata, &ins.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}

		ins.CreatedAt = fromMillis(createdAt)
		ins.LastValidated = fromMillis(validated)
		if expiresAt.Valid {
			t := fromMillis(expiresAt.Int64)
			ins.ExpiresAt = &t
		}
		ins.Metadata = decodeMetadata(ctx, ins.ID, metadata)
		out = append(out, ins)
	}
	return out, rows.Err()
}

func encodeMetadata(md map[string]any) (string, error) {
	if len(md) == 0 {
		return "", nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

// decodeMetadata treats unparseable metadata as absent.
func decodeMetadata(ctx context.Context, id, raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		log.FromCtx(ctx).Debug().Err(err).Str("id", id).Msg("ignoring malformed insight metadata")
		return nil
	}
	return md
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
