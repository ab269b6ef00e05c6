package memory

import (
	"context"
	"fmt"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
)

// Memory assembles the chat context for a subject from prompt files,
// recalled insights, the latest summary and recent history.
type Memory struct {
	cfg      core.AppConfig
	msgRepo  core.MessagesRepository
	engine   *Engine
	prompter *SysPrompt
}

func NewMemory(
	cfg core.AppConfig,
	msgRepo core.MessagesRepository,
	engine *Engine,
	prompter *SysPrompt,
) *Memory {
	return &Memory{
		cfg:      cfg,
		msgRepo:  msgRepo,
		engine:   engine,
		prompter: prompter,
	}
}

func (s *Memory) GetFullContext(ctx context.Context, subjectID, userQuery string) ([]core.Message, error) {
	messages := s.prompter.Build()

	if knowledge := s.getKnowledge(ctx, subjectID, userQuery); knowledge != "" {
		messages = append(messages, core.Message{
			Role:    core.RoleSystem,
			Content: knowledge,
		})
	}

	history, err := s.msgRepo.GetMessages(ctx, subjectID, s.cfg.GetContextWindowSize())
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	history = trimToTokenBudget(history, s.cfg.GetHistoryTokenBudget())
	messages = append(messages, history...)

	log.FromCtx(ctx).Debug().
		Str("subject", subjectID).
		Int("messages", len(messages)).
		Int("tokens", EstimateTokens(messages)).
		Msg("context assembled")

	return messages, nil
}

// getKnowledge never fails the whole context: recall problems are logged
// and the knowledge block is left out.
func (s *Memory) getKnowledge(ctx context.Context, subjectID, userQuery string) string {
	logger := log.FromCtx(ctx)

	insights, err := s.engine.GetRelevantInsights(ctx, subjectID, userQuery, s.cfg.GetRecallLimit())
	if err != nil {
		logger.Error().Err(err).Msg("insight recall failed")
		insights = nil
	}

	summary, err := s.engine.LatestSummary(ctx, subjectID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load latest summary")
		summary = nil
	}

	return RenderKnowledge(insights, summary)
}

func (s *Memory) SaveMessage(ctx context.Context, subjectID string, msg core.Message) error {
	return s.msgRepo.AddMessage(ctx, subjectID, msg)
}
