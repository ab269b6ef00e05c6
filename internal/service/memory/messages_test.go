package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/stridemem/internal/core"
)

func TestParseMessages(t *testing.T) {
	t.Run("valid conversation", func(t *testing.T) {
		msgs, err := ParseMessages([]byte(`[
			{"role": "User", "content": "My knee hurts"},
			{"role": "assistant", "content": "Let's rest it"}
		]`))
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, core.Message{Role: core.RoleUser, Content: "My knee hurts"}, msgs[0])
		assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	})

	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `[{"role": "user"`},
		{"empty array", `[]`},
		{"system role", `[{"role": "system", "content": "x"}]`},
		{"object instead of array", `{"role": "user", "content": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessages([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
