package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/stridemem/internal/core"
)

// Plain ANSI colors only, so output reads on light and dark terminals.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	DescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	FlagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	CategoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	ScoreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// RenderInsights formats recalled insights one per line for the terminal.
func RenderInsights(insights []core.Insight) string {
	if len(insights) == 0 {
		return DescStyle.Render("nothing recalled")
	}

	var sb strings.Builder
	for _, ins := range insights {
		label := string(ins.Category)
		if ins.Subcategory != "" {
			label += "/" + ins.Subcategory
		}
		fmt.Fprintf(&sb, "%s %s %s\n",
			CategoryStyle.Render("["+label+"]"),
			ins.Text,
			ScoreStyle.Render(fmt.Sprintf("(score %.2f, confidence %.2f, id %s)", ins.Score, ins.Confidence, ins.ID)),
		)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderSummary formats a stored conversation summary.
func RenderSummary(s *core.ConversationSummary) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("Conversation %s (%d messages)", s.Date, s.MessageCount)))
	sb.WriteString("\n")
	sb.WriteString(s.Summary)
	if len(s.Tags) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(DescStyle.Render("Topics: " + strings.Join(s.Tags, ", ")))
	}
	return sb.String()
}
