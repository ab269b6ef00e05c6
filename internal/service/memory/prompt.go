package memory

import (
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/stridemem/internal/core"
)

type SysPrompt struct {
	cfg core.PromptConfig
}

func NewSysPrompt(cfg core.PromptConfig) *SysPrompt {
	return &SysPrompt{
		cfg: cfg,
	}
}

// Build returns one system message per non-empty prompt file.
func (p *SysPrompt) Build() []core.Message {
	messages := make([]core.Message, 0, 3)
	readFile := func(path string) string {
		content, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(content))
	}

	for _, path := range []string{
		p.cfg.GetSystemPath(),
		p.cfg.GetIdentityPath(),
		p.cfg.GetUserProfilePath(),
	} {
		if content := readFile(path); content != "" {
			messages = append(messages, core.Message{Role: core.RoleSystem, Content: content})
		}
	}
	return messages
}

// RenderKnowledge formats recalled insights and the latest conversation
// summary as markdown. It returns "" when there is nothing to say.
func RenderKnowledge(insights []core.Insight, summary *core.ConversationSummary) string {
	var sb strings.Builder

	if len(insights) > 0 {
		sb.WriteString("### What I know about you\n")
		for _, ins := range insights {
			label := string(ins.Category)
			if ins.Subcategory != "" {
				label += "/" + ins.Subcategory
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", label, ins.Text)
		}
	}

	if summary != nil && summary.Summary != NoSummarySentinel {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "### Last conversation (%s)\n", summary.Date)
		sb.WriteString(summary.Summary)
		sb.WriteString("\n")
		if len(summary.Tags) > 0 {
			fmt.Fprintf(&sb, "\nTopics: %s\n", strings.Join(summary.Tags, ", "))
		}
	}

	return sb.String()
}

// EstimateTokens counts cl100k tokens across messages. When the encoding
// cannot be loaded it falls back to four runes per token.
func EstimateTokens(messages []core.Message) int {
	total := 0
	for _, m := range messages {
		total += countTokens(m.Content)
	}
	return total
}
