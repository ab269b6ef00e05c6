package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/stridemem/pkg/log"
)

const defaultRetentionInterval = time.Hour

type RetentionResult struct {
	Deactivated     int64
	PrunedSummaries int64
}

// ApplyRetention deactivates expired insights and trims every subject's
// summaries to keep rows.
func (e *Engine) ApplyRetention(ctx context.Context, keep int) (RetentionResult, error) {
	var res RetentionResult

	n, err := e.insights.DeactivateExpired(ctx, e.now().UTC())
	if err != nil {
		return res, fmt.Errorf("deactivate expired: %w", err)
	}
	res.Deactivated = n
	if n > 0 && e.pool != nil {
		e.pool.Flush()
	}

	subjects, err := e.summaries.ListSubjects(ctx)
	if err != nil {
		return res, fmt.Errorf("list subjects: %w", err)
	}
	for _, subjectID := range subjects {
		pruned, err := e.summaries.PruneSummaries(ctx, subjectID, keep)
		if err != nil {
			return res, fmt.Errorf("prune summaries for %s: %w", subjectID, err)
		}
		res.PrunedSummaries += pruned
	}
	return res, nil
}

type RetentionWorker struct {
	engine    *Engine
	Interval  time.Duration
	Retention int
}

func NewRetentionWorker(engine *Engine) *RetentionWorker {
	return &RetentionWorker{
		engine:    engine,
		Interval:  defaultRetentionInterval,
		Retention: SummaryRetention,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "retention")
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", w.Interval).Msg("starting retention worker")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := w.engine.ApplyRetention(ctx, w.Retention)
			if err != nil {
				logger.Error().Err(err).Msg("retention pass failed")
				continue
			}
			if res.Deactivated > 0 || res.PrunedSummaries > 0 {
				logger.Info().
					Int64("deactivated", res.Deactivated).
					Int64("pruned_summaries", res.PrunedSummaries).
					Msg("retention applied")
			}
		}
	}
}

func (w *RetentionWorker) Shutdown(ctx context.Context) error {
	return nil
}
