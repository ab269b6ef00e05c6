package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/stridemem/internal/core"
)

func TestLoadBpeFile(t *testing.T) {
	dir := t.TempDir()
	var sb strings.Builder
	for i, tok := range []string{"run", "ning", " easy"} {
		fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte(tok)), i)
	}
	name := filepath.Join(dir, "cl100k_base.tiktoken")
	require.NoError(t, os.WriteFile(name, []byte(sb.String()), 0o644))

	ranks, err := loadBpeFile(name)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"run": 0, "ning": 1, " easy": 2}, ranks)

	t.Run("loader resolves the file by base name", func(t *testing.T) {
		SetTokenizerDir(dir)
		t.Cleanup(func() { SetTokenizerDir("") })

		ranks, err := fileBpeLoader{}.LoadTiktokenBpe("https://example.invalid/encodings/cl100k_base.tiktoken")
		require.NoError(t, err)
		assert.Len(t, ranks, 3)
	})

	t.Run("malformed line", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.tiktoken")
		require.NoError(t, os.WriteFile(bad, []byte("cnVu\n"), 0o644))
		_, err := loadBpeFile(bad)
		assert.Error(t, err)
	})
}

func TestFileBpeLoader_NoDirectory(t *testing.T) {
	_, err := fileBpeLoader{}.LoadTiktokenBpe("cl100k_base.tiktoken")
	assert.ErrorIs(t, err, errNoTokenizerDir)

	SetTokenizerDir(t.TempDir())
	t.Cleanup(func() { SetTokenizerDir("") })
	_, err = fileBpeLoader{}.LoadTiktokenBpe("cl100k_base.tiktoken")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTrimToTokenBudget(t *testing.T) {
	turn := strings.Repeat("easy miles ", 8)
	per := countTokens(turn)
	require.Positive(t, per)

	history := []core.Message{userMsg(turn), assistantMsg(turn), userMsg(turn), assistantMsg(turn)}

	tests := []struct {
		name   string
		budget int
		want   int
	}{
		{name: "unlimited", budget: 0, want: 4},
		{name: "fits everything", budget: 4 * per, want: 4},
		{name: "keeps newest that fit", budget: 2*per + 1, want: 2},
		{name: "newest turn always kept", budget: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimToTokenBudget(history, tt.budget)
			require.Len(t, got, tt.want)
			assert.Equal(t, history[len(history)-1], got[len(got)-1])
		})
	}
}

func TestMemory_GetFullContextTrimsHistory(t *testing.T) {
	old := strings.Repeat("I did a long run on the trail last weekend. ", 10)
	recent := []core.Message{userMsg("How was my week?"), assistantMsg("Solid, three easy runs.")}

	cfg := testConfig{dir: t.TempDir(), budget: EstimateTokens(recent)}
	store := newFakeStore()
	mem := NewMemory(cfg, store, newTestEngine(store, newFixedClock()), NewSysPrompt(cfg))
	ctx := context.Background()

	require.NoError(t, mem.SaveMessage(ctx, "runner-1", userMsg(old)))
	for _, m := range recent {
		require.NoError(t, mem.SaveMessage(ctx, "runner-1", m))
	}

	got, err := mem.GetFullContext(ctx, "runner-1", "week")
	require.NoError(t, err)
	assert.Equal(t, recent, got)
}
