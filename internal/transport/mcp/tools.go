package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/pkg/log"
)

const maxRecallLimit = 50

type summarizeResult struct {
	Stored  bool                      `json:"stored"`
	Text    string                    `json:"text"`
	Summary *core.ConversationSummary `json:"summary,omitempty"`
}

func (s *Server) registerExtractTool() {
	tool := mcp.NewTool("memory_extract",
		mcp.WithDescription("Extract durable insights (injuries, goals, feedback, preferences, constraints, patterns) from a conversation and store them for the subject. Near-duplicates are merged into existing insights."),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Opaque identifier of the person the conversation is about"),
		),
		mcp.WithString("messages",
			mcp.Required(),
			mcp.Description(`JSON array of {"role": "user"|"assistant", "content": "..."} in conversation order`),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, msgs, errResult := subjectAndMessages(req)
		if errResult != nil {
			return errResult, nil
		}

		unlock := s.lock(subjectID)
		defer unlock()

		res, err := s.engine.ExtractAndStore(ctx, subjectID, msgs)
		if err != nil {
			log.FromCtx(ctx).Error().Err(err).Str("subject", subjectID).Msg("memory_extract failed")
			return mcp.NewToolResultError(fmt.Sprintf("extract failed: %v", err)), nil
		}
		return jsonResult(res)
	})
}

func (s *Server) registerRecallTool() {
	tool := mcp.NewTool("memory_recall",
		mcp.WithDescription("Return the subject's insights most relevant to the given context, ranked by word overlap, category, recency and confidence."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Opaque identifier of the person"),
		),
		mcp.WithString("context",
			mcp.Required(),
			mcp.Description("Current message or topic to recall insights for"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of insights (default: %d, max: %d)", s.limit, maxRecallLimit)),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, err := req.RequireString("subject_id")
		if err != nil || strings.TrimSpace(subjectID) == "" {
			return mcp.NewToolResultError("subject_id is required"), nil
		}
		contextText, err := req.RequireString("context")
		if err != nil {
			return mcp.NewToolResultError("context is required"), nil
		}

		limit := int(req.GetFloat("limit", float64(s.limit)))
		if limit <= 0 {
			limit = s.limit
		}
		if limit > maxRecallLimit {
			limit = maxRecallLimit
		}

		insights, err := s.engine.GetRelevantInsights(ctx, subjectID, contextText, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
		}
		if insights == nil {
			insights = []core.Insight{}
		}
		return jsonResult(insights)
	})
}

func (s *Server) registerSummarizeTool() {
	tool := mcp.NewTool("memory_summarize",
		mcp.WithDescription("Summarise a finished conversation into decisions, preferences and progress. Conversations of at least six messages are stored, one summary per subject per day."),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Opaque identifier of the person"),
		),
		mcp.WithString("messages",
			mcp.Required(),
			mcp.Description(`JSON array of {"role": "user"|"assistant", "content": "..."} in conversation order`),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, msgs, errResult := subjectAndMessages(req)
		if errResult != nil {
			return errResult, nil
		}

		unlock := s.lock(subjectID)
		defer unlock()

		summary, err := s.engine.StoreConversationSummary(ctx, subjectID, msgs, time.Now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("summarize failed: %v", err)), nil
		}

		res := summarizeResult{Stored: summary != nil, Summary: summary}
		if summary != nil {
			res.Text = summary.Summary
		} else {
			res.Text = s.engine.Tables().Consolidate(msgs)
		}
		return jsonResult(res)
	})
}

func (s *Server) registerForgetTool() {
	tool := mcp.NewTool("memory_forget",
		mcp.WithDescription("Deactivate a stored insight so it is no longer recalled."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("insight_id",
			mcp.Required(),
			mcp.Description("ID of the insight, as returned by memory_extract or memory_recall"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("insight_id")
		if err != nil || strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("insight_id is required"), nil
		}

		if err := s.engine.Forget(ctx, id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("insight %s not found", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("forget failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("insight %s forgotten", id)), nil
	})
}

func (s *Server) registerLogTool() {
	tool := mcp.NewTool("memory_log",
		mcp.WithDescription("Append one message to the subject's conversation log. Logged messages are processed into insights and summaries in the background."),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Opaque identifier of the person"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("Message author"),
			mcp.Enum(core.RoleUser, core.RoleAssistant),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Message text"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, err := req.RequireString("subject_id")
		if err != nil || strings.TrimSpace(subjectID) == "" {
			return mcp.NewToolResultError("subject_id is required"), nil
		}
		role, err := req.RequireString("role")
		if err != nil || (role != core.RoleUser && role != core.RoleAssistant) {
			return mcp.NewToolResultError("role must be user or assistant"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		if err := s.memory.SaveMessage(ctx, subjectID, core.Message{Role: role, Content: content}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("log failed: %v", err)), nil
		}
		return mcp.NewToolResultText("logged"), nil
	})
}

func (s *Server) registerContextTool() {
	tool := mcp.NewTool("memory_context",
		mcp.WithDescription("Build the chat context for the subject: prompt files, what is known about them, the last conversation summary and recent history."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("subject_id",
			mcp.Required(),
			mcp.Description("Opaque identifier of the person"),
		),
		mcp.WithString("query",
			mcp.Description("The message being answered; drives insight recall"),
		),
	)

	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectID, err := req.RequireString("subject_id")
		if err != nil || strings.TrimSpace(subjectID) == "" {
			return mcp.NewToolResultError("subject_id is required"), nil
		}

		msgs, err := s.memory.GetFullContext(ctx, subjectID, req.GetString("query", ""))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("context failed: %v", err)), nil
		}
		return jsonResult(msgs)
	})
}

func subjectAndMessages(req mcp.CallToolRequest) (string, []core.Message, *mcp.CallToolResult) {
	subjectID, err := req.RequireString("subject_id")
	if err != nil || strings.TrimSpace(subjectID) == "" {
		return "", nil, mcp.NewToolResultError("subject_id is required")
	}
	raw, err := req.RequireString("messages")
	if err != nil {
		return "", nil, mcp.NewToolResultError("messages is required")
	}

	msgs, err := memory.ParseMessages([]byte(raw))
	if err != nil {
		return "", nil, mcp.NewToolResultError(err.Error())
	}
	return subjectID, msgs, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
