package memory

import (
	"testing"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byCategory(insights []core.Insight) map[core.Category][]core.Insight {
	out := make(map[core.Category][]core.Insight)
	for _, ins := range insights {
		out[ins.Category] = append(out[ins.Category], ins)
	}
	return out
}

func TestExtract_InjuryAndGoal(t *testing.T) {
	ex := NewExtractor()
	got := ex.Extract("runner-1", []core.Message{
		userMsg("My left knee has been hurting for two weeks and I want to qualify for Boston"),
	})

	require.GreaterOrEqual(t, len(got), 2)
	cats := byCategory(got)

	require.Len(t, cats[core.CategoryInjury], 1)
	injury := cats[core.CategoryInjury][0]
	assert.InDelta(t, 0.9, injury.Confidence, 1e-9) // base 0.75, knee + weeks, short message
	assert.Contains(t, injury.Text, "knee")
	assert.Equal(t, core.SourceInferred, injury.Source)
	assert.Equal(t, "hurting", injury.Metadata["trigger"])

	require.Len(t, cats[core.CategoryGoal], 1)
	goal := cats[core.CategoryGoal][0]
	assert.InDelta(t, 0.8, goal.Confidence, 1e-9) // base 0.7, boston, short message
	assert.Contains(t, goal.Text, "Boston")

	for _, ins := range got {
		assert.Equal(t, "runner-1", ins.SubjectID)
		assert.True(t, ins.Active)
		assert.False(t, ins.LastValidated.IsZero())
	}
}

func TestExtract_DirectiveWinsOverRule(t *testing.T) {
	got := NewExtractor().Extract("runner-1", []core.Message{
		userMsg("remember that I only run in the mornings"),
	})

	require.Len(t, got, 1)
	ins := got[0]
	assert.Equal(t, core.CategoryPreference, ins.Category)
	assert.Equal(t, core.SourceExplicit, ins.Source)
	assert.Equal(t, "I only run in the mornings", ins.Text)
	assert.InDelta(t, 0.92, ins.Confidence, 1e-9)
	assert.Equal(t, "remember that", ins.Metadata["directive"])
}

func TestExtract_RaceResult(t *testing.T) {
	got := NewExtractor().Extract("runner-1", []core.Message{
		userMsg("I ran a marathon in 3:45:22"),
	})

	require.Len(t, got, 1)
	ins := got[0]
	assert.Equal(t, core.CategoryFeedback, ins.Category)
	assert.Equal(t, "race_result", ins.Subcategory)
	assert.InDelta(t, 0.92, ins.Confidence, 1e-9)
	assert.Equal(t, "3:45:22", ins.Metadata["time"])
	assert.Equal(t, "marathon", ins.Metadata["distance"])
	assert.Equal(t, "race_result", ins.Metadata["parser"])
}

func TestExtract_WeeklyMileage(t *testing.T) {
	got := NewExtractor().Extract("runner-1", []core.Message{
		userMsg("These days I am doing 42 km per week"),
	})

	require.Len(t, got, 1)
	ins := got[0]
	assert.Equal(t, core.CategoryPattern, ins.Category)
	assert.Equal(t, "mileage", ins.Subcategory)
	assert.Equal(t, 42.0, ins.Metadata["value"])
	assert.Equal(t, "km", ins.Metadata["unit"])
}

func TestExtract_IgnoresNonUserMessages(t *testing.T) {
	got := NewExtractor().Extract("runner-1", []core.Message{
		{Role: core.RoleAssistant, Content: "My knee has been hurting for weeks"},
		{Role: core.RoleSystem, Content: "remember that the user is a coach"},
		userMsg("   "),
	})

	assert.Empty(t, got)
}

func TestExtract_NoMatch(t *testing.T) {
	got := NewExtractor().Extract("runner-1", []core.Message{userMsg("hello there")})
	assert.Empty(t, got)
}

func TestExtract_ConfidenceCapped(t *testing.T) {
	got := NewExtractor().Extract("runner-1", []core.Message{
		userMsg("My knee and ankle and hip and calf have been hurting for weeks, the doctor and physio agree"),
	})

	cats := byCategory(got)
	require.NotEmpty(t, cats[core.CategoryInjury])
	assert.InDelta(t, maxConfidence, cats[core.CategoryInjury][0].Confidence, 1e-9)
}

func TestDirectiveText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips that", in: " that I hate treadmills. Also", want: "I hate treadmills"},
		{name: "strips separators", in: ": my race is in May", want: "my race is in May"},
		{name: "stops at newline", in: " tempo on Tuesdays\nthanks", want: "tempo on Tuesdays"},
		{name: "keeps clock times", in: " my PB is 1:32:10 now", want: "my PB is 1:32:10 now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, directiveText(tt.in))
		})
	}
}

func TestDirective_AllOccurrences(t *testing.T) {
	ex := NewExtractor()
	got := ex.directiveInsights("Keep in mind I travel on Mondays. Also keep in mind my knee is weak.")

	require.Len(t, got, 2)
	assert.Equal(t, "I travel on Mondays", got[0].Text)
	assert.Equal(t, "my knee is weak", got[1].Text)
	assert.Equal(t, core.CategoryInjury, got[1].Category)
}

func TestContextWindow_LongSentence(t *testing.T) {
	long := ""
	for len(long) < 500 {
		long += "filler words go here "
	}
	text := long + "my knee is sore " + long
	idx := len(long)

	w := contextWindow(text, idx, idx+len("my knee"))
	assert.LessOrEqual(t, len(w), maxWindowLen)
	assert.Contains(t, w, "my knee")
}
