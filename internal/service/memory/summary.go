package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/pkg/log"
)

const (
	MinSummaryMessages = 6
	SummaryRetention   = 100
	NoSummarySentinel  = "No significant decisions, preferences, or progress found."

	maxSummaryItems = 5
	maxKeyItemLen   = 200
)

// ConsolidateConversation buckets message lines into decisions, preferences
// and progress using the embedded vocabulary.
func ConsolidateConversation(messages []core.Message) string {
	return defaultTables.Consolidate(messages)
}

// TagMessage returns the tags whose keywords appear in text, in table order.
func TagMessage(text string) []string {
	return defaultTables.TagMessage(text)
}

func (t *Tables) Consolidate(messages []core.Message) string {
	var decisions, preferences, progress []string

	for _, line := range messageLines(messages) {
		lowered := strings.ToLower(line)
		switch {
		case containsAny(lowered, t.Summary.Decisions):
			decisions = appendItem(decisions, line)
		case containsAny(lowered, t.Summary.Preferences):
			preferences = appendItem(preferences, line)
		case containsAny(lowered, t.Summary.Progress):
			progress = appendItem(progress, line)
		}
	}

	if len(decisions)+len(preferences)+len(progress) == 0 {
		return NoSummarySentinel
	}

	var sb strings.Builder
	writeSection(&sb, "Decisions", decisions)
	writeSection(&sb, "Preferences", preferences)
	writeSection(&sb, "Progress", progress)
	return strings.TrimRight(sb.String(), "\n")
}

func (t *Tables) TagMessage(text string) []string {
	lowered := strings.ToLower(text)
	var tags []string
	for _, rule := range t.Tags {
		if containsAny(lowered, rule.Keywords) {
			tags = append(tags, rule.Tag)
		}
	}
	return tags
}

// BuildConversationSummary derives the summary record for one conversation.
// It reports false when the conversation is too short to summarise.
func (t *Tables) BuildConversationSummary(subjectID string, messages []core.Message, at time.Time) (core.ConversationSummary, bool) {
	if len(messages) < MinSummaryMessages {
		return core.ConversationSummary{}, false
	}

	s := core.ConversationSummary{
		SubjectID:    subjectID,
		Date:         at.UTC().Format(time.DateOnly),
		MessageCount: len(messages),
		Summary:      t.Consolidate(messages),
		CreatedAt:    at.UTC(),
	}

	seen := make(map[string]struct{})
	for _, msg := range messages {
		for _, line := range splitLines(msg.Content) {
			lowered := strings.ToLower(line)
			switch msg.Role {
			case core.RoleAssistant:
				if containsAny(lowered, t.Summary.Commitments) {
					s.KeyDecisions = appendItem(s.KeyDecisions, line)
				}
			case core.RoleUser:
				if containsAny(lowered, t.Summary.Likes) {
					s.KeyPreferences = appendItem(s.KeyPreferences, line)
				}
				if containsAny(lowered, t.Summary.Feedback) {
					s.KeyFeedback = appendItem(s.KeyFeedback, line)
				}
			}
		}
		for _, tag := range t.TagMessage(msg.Content) {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			s.Tags = append(s.Tags, tag)
		}
	}
	return s, true
}

// StoreConversationSummary persists the summary for a conversation of at
// least MinSummaryMessages messages and trims the subject's history to
// SummaryRetention rows. Shorter conversations return nil.
func (e *Engine) StoreConversationSummary(ctx context.Context, subjectID string, messages []core.Message, at time.Time) (*core.ConversationSummary, error) {
	s, ok := e.tables.BuildConversationSummary(subjectID, messages, at)
	if !ok {
		return nil, nil
	}

	if err := e.summaries.UpsertSummary(ctx, s); err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}
	pruned, err := e.summaries.PruneSummaries(ctx, subjectID, SummaryRetention)
	if err != nil {
		return nil, fmt.Errorf("prune summaries: %w", err)
	}

	log.FromCtx(ctx).Debug().
		Str("subject", subjectID).
		Str("date", s.Date).
		Int("messages", s.MessageCount).
		Strs("tags", s.Tags).
		Int64("pruned", pruned).
		Msg("conversation summary stored")
	return &s, nil
}

// LatestSummary returns the newest stored summary of a subject, or nil.
func (e *Engine) LatestSummary(ctx context.Context, subjectID string) (*core.ConversationSummary, error) {
	list, err := e.summaries.ListSummaries(ctx, subjectID, 1)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func messageLines(messages []core.Message) []string {
	var lines []string
	for _, msg := range messages {
		lines = append(lines, splitLines(msg.Content)...)
	}
	return lines
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func appendItem(items []string, line string) []string {
	if len(items) >= maxSummaryItems {
		return items
	}
	line = truncate(line, maxKeyItemLen)
	for _, existing := range items {
		if existing == line {
			return items
		}
	}
	return append(items, line)
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title)
	sb.WriteString(":\n")
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
