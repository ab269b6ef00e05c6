package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
)

const (
	defaultBatchSize          = 100
	defaultExtractionInterval = time.Minute
	defaultSessionGap         = 30 * time.Minute
	defaultCommitTimeout      = 5 * time.Minute
)

// ExtractionWorker periodically turns logged messages into insights and
// conversation summaries. It is the single writer for every subject it sees.
type ExtractionWorker struct {
	engine        *Engine
	repo          core.MessagesRepository
	Interval      time.Duration
	BatchSize     int
	SessionGap    time.Duration
	CommitTimeout time.Duration
	now           func() time.Time
}

func NewExtractionWorker(engine *Engine, repo core.MessagesRepository) *ExtractionWorker {
	return &ExtractionWorker{
		engine:        engine,
		repo:          repo,
		Interval:      defaultExtractionInterval,
		BatchSize:     defaultBatchSize,
		SessionGap:    defaultSessionGap,
		CommitTimeout: defaultCommitTimeout,
		now:           engine.now,
	}
}

func (w *ExtractionWorker) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "extraction")
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", w.Interval).Msg("starting insight extractor")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				logger.Error().Err(err).Msg("batch processing failed")
			}
		}
	}
}

func (w *ExtractionWorker) Shutdown(ctx context.Context) error {
	return nil
}

func (w *ExtractionWorker) processBatch(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	subjects, err := w.repo.ListPendingSubjects(ctx)
	if err != nil {
		return fmt.Errorf("list pending subjects: %w", err)
	}

	var errs []error
	for _, subjectID := range subjects {
		if err := w.processSubject(ctx, subjectID); err != nil {
			logger.Error().Err(err).Str("subject", subjectID).Msg("subject processing failed")
			errs = append(errs, fmt.Errorf("subject %s: %w", subjectID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *ExtractionWorker) processSubject(ctx context.Context, subjectID string) error {
	pending, err := w.subjectBacklog(ctx, subjectID)
	if err != nil {
		return err
	}

	sessions := splitByContextSessions(pending, w.SessionGap)
	for i, session := range sessions {
		// the newest session may still be in progress
		if i == len(sessions)-1 && w.isOpen(session) {
			continue
		}
		if err := w.processSession(ctx, subjectID, session); err != nil {
			return err
		}
	}
	return nil
}

// subjectBacklog reads every unextracted message of a subject, BatchSize rows
// at a time, so a session is never cut at a page boundary.
func (w *ExtractionWorker) subjectBacklog(ctx context.Context, subjectID string) ([]core.StoredMessage, error) {
	pageSize := w.BatchSize
	if pageSize <= 0 {
		pageSize = defaultBatchSize
	}

	var (
		all     []core.StoredMessage
		afterID int64
	)
	for {
		page, err := w.repo.GetSubjectUnextracted(ctx, subjectID, afterID, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch messages: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		afterID = page[len(page)-1].ID
	}
}

func (w *ExtractionWorker) isOpen(session []core.StoredMessage) bool {
	last := session[len(session)-1]
	return w.now().Sub(last.CreatedAt) < w.CommitTimeout
}

func (w *ExtractionWorker) processSession(ctx context.Context, subjectID string, session []core.StoredMessage) error {
	logger := log.FromCtx(ctx)
	messages, ids := toConversation(session)

	res, err := w.engine.ExtractAndStore(ctx, subjectID, messages)
	if err != nil {
		return fmt.Errorf("extract and store: %w", err)
	}

	last := session[len(session)-1].CreatedAt
	summary, err := w.engine.StoreConversationSummary(ctx, subjectID, messages, last)
	if err != nil {
		return fmt.Errorf("store summary: %w", err)
	}

	if err := w.repo.MarkMessagesExtracted(ctx, ids); err != nil {
		return fmt.Errorf("mark extracted: %w", err)
	}

	logger.Info().
		Str("subject", subjectID).
		Int("messages", len(session)).
		Int("inserted", len(res.Inserted)).
		Int("merged", len(res.Merged)).
		Bool("summarized", summary != nil).
		Msg("session processed")
	return nil
}

func splitByContextSessions(msgs []core.StoredMessage, threshold time.Duration) [][]core.StoredMessage {
	if len(msgs) == 0 {
		return nil
	}

	var groups [][]core.StoredMessage
	currentGroup := []core.StoredMessage{msgs[0]}

	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Sub(msgs[i-1].CreatedAt) > threshold {
			groups = append(groups, currentGroup)
			currentGroup = []core.StoredMessage{}
		}
		currentGroup = append(currentGroup, msgs[i])
	}

	if len(currentGroup) > 0 {
		groups = append(groups, currentGroup)
	}

	return groups
}

// toConversation returns the user and assistant turns of a session. Every
// message id is returned so that skipped system turns are marked too.
func toConversation(msgs []core.StoredMessage) ([]core.Message, []int64) {
	messages := make([]core.Message, 0, len(msgs))
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
		if m.Role != core.RoleUser && m.Role != core.RoleAssistant {
			continue
		}
		messages = append(messages, core.Message{Role: m.Role, Content: m.Content})
	}
	return messages, ids
}
