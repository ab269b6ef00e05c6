package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/internal/storage/sqlite"
)

type testConfig struct {
	dir string
}

func (c testConfig) GetRuntimePath() string     { return c.dir }
func (c testConfig) GetDatabasePath() string    { return filepath.Join(c.dir, "stride.db") }
func (c testConfig) GetContextWindowSize() int  { return 10 }
func (c testConfig) GetRecallLimit() int        { return 5 }
func (c testConfig) GetHistoryTokenBudget() int { return 0 }
func (c testConfig) GetSystemPath() string      { return filepath.Join(c.dir, "SYSTEM.md") }
func (c testConfig) GetIdentityPath() string    { return filepath.Join(c.dir, "IDENTITY.md") }
func (c testConfig) GetUserProfilePath() string { return filepath.Join(c.dir, "USER.md") }

type toolResult struct {
	Text    string
	IsError bool
}

func setupServer(t *testing.T) (*Server, *sqlite.MessagesRepo) {
	t.Helper()
	cfg := testConfig{dir: t.TempDir()}

	db, err := sqlite.NewDB(context.Background(), cfg.GetDatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	msgRepo := sqlite.NewMessagesRepo(db)
	engine := memory.NewEngine(sqlite.NewInsightsRepo(db), sqlite.NewSummariesRepo(db))
	mem := memory.NewMemory(cfg, msgRepo, engine, memory.NewSysPrompt(cfg))

	return NewServer(engine, mem, cfg.GetRecallLimit(), strings.NewReader(""), &strings.Builder{}), msgRepo
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) toolResult {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	require.NoError(t, err)

	respBytes, err := json.Marshal(srv.HandleMessage(context.Background(), payload))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &resp), "raw: %s", respBytes)
	require.Nil(t, resp.Error, "unexpected JSON-RPC error")

	var texts []string
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	return toolResult{Text: strings.Join(texts, "\n"), IsError: resp.Result.IsError}
}

func messagesJSON(t *testing.T, msgs ...core.Message) string {
	t.Helper()
	data, err := json.Marshal(msgs)
	require.NoError(t, err)
	return string(data)
}

func user(content string) core.Message {
	return core.Message{Role: core.RoleUser, Content: content}
}

func assistant(content string) core.Message {
	return core.Message{Role: core.RoleAssistant, Content: content}
}

func TestExtractAndRecall(t *testing.T) {
	srv, _ := setupServer(t)

	res := callTool(t, srv.MCP(), "memory_extract", map[string]any{
		"subject_id": "runner-1",
		"messages": messagesJSON(t,
			user("My left knee has been hurting for two weeks and I want to qualify for Boston"),
			assistant("Let's keep the mileage easy this week."),
		),
	})
	require.False(t, res.IsError, res.Text)

	var stored memory.StoreResult
	require.NoError(t, json.Unmarshal([]byte(res.Text), &stored))
	require.Len(t, stored.Inserted, 2)

	res = callTool(t, srv.MCP(), "memory_recall", map[string]any{
		"subject_id": "runner-1",
		"context":    "my knee is sore after the long run",
		"limit":      1,
	})
	require.False(t, res.IsError, res.Text)

	var recalled []core.Insight
	require.NoError(t, json.Unmarshal([]byte(res.Text), &recalled))
	require.Len(t, recalled, 1)
	assert.Equal(t, core.CategoryInjury, recalled[0].Category)
	assert.Greater(t, recalled[0].Score, 0.0)
}

func TestRecall_UnknownSubjectReturnsEmptyList(t *testing.T) {
	srv, _ := setupServer(t)

	res := callTool(t, srv.MCP(), "memory_recall", map[string]any{
		"subject_id": "nobody",
		"context":    "anything",
	})
	require.False(t, res.IsError, res.Text)
	assert.JSONEq(t, `[]`, res.Text)
}

func TestExtract_InvalidInput(t *testing.T) {
	srv, _ := setupServer(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing subject", map[string]any{"messages": `[{"role":"user","content":"hi"}]`}},
		{"blank subject", map[string]any{"subject_id": "  ", "messages": `[{"role":"user","content":"hi"}]`}},
		{"missing messages", map[string]any{"subject_id": "runner-1"}},
		{"malformed messages", map[string]any{"subject_id": "runner-1", "messages": `not json`}},
		{"bad role", map[string]any{"subject_id": "runner-1", "messages": `[{"role":"tool","content":"hi"}]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, srv.MCP(), "memory_extract", tt.args)
			assert.True(t, res.IsError)
		})
	}
}

func TestForget(t *testing.T) {
	srv, _ := setupServer(t)

	res := callTool(t, srv.MCP(), "memory_extract", map[string]any{
		"subject_id": "runner-1",
		"messages":   messagesJSON(t, user("My left knee has been hurting for two weeks")),
	})
	require.False(t, res.IsError, res.Text)

	var stored memory.StoreResult
	require.NoError(t, json.Unmarshal([]byte(res.Text), &stored))
	require.NotEmpty(t, stored.Inserted)
	id := stored.Inserted[0].ID

	res = callTool(t, srv.MCP(), "memory_forget", map[string]any{"insight_id": id})
	require.False(t, res.IsError, res.Text)
	assert.Contains(t, res.Text, id)

	res = callTool(t, srv.MCP(), "memory_recall", map[string]any{
		"subject_id": "runner-1",
		"context":    "knee",
	})
	require.False(t, res.IsError, res.Text)
	assert.JSONEq(t, `[]`, res.Text)

	res = callTool(t, srv.MCP(), "memory_forget", map[string]any{"insight_id": "does-not-exist"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, "not found")
}

func TestSummarize(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("short conversation is not stored", func(t *testing.T) {
		res := callTool(t, srv.MCP(), "memory_summarize", map[string]any{
			"subject_id": "runner-1",
			"messages":   messagesJSON(t, user("hello"), assistant("hi")),
		})
		require.False(t, res.IsError, res.Text)

		var out summarizeResult
		require.NoError(t, json.Unmarshal([]byte(res.Text), &out))
		assert.False(t, out.Stored)
		assert.Equal(t, memory.NoSummarySentinel, out.Text)
	})

	t.Run("long conversation is stored", func(t *testing.T) {
		res := callTool(t, srv.MCP(), "memory_summarize", map[string]any{
			"subject_id": "runner-1",
			"messages": messagesJSON(t,
				user("I prefer running in the mornings"),
				assistant("We will schedule your runs before work."),
				user("The tempo run felt too hard yesterday"),
				assistant("We'll slow the tempo pace next week."),
				user("Sounds good"),
				assistant("I'll plan an easy week and we will check in Friday."),
			),
		})
		require.False(t, res.IsError, res.Text)

		var out summarizeResult
		require.NoError(t, json.Unmarshal([]byte(res.Text), &out))
		assert.True(t, out.Stored)
		require.NotNil(t, out.Summary)
		assert.Equal(t, "runner-1", out.Summary.SubjectID)
		assert.Equal(t, out.Summary.Summary, out.Text)
		assert.NotEmpty(t, out.Text)
	})
}

func TestLogAndContext(t *testing.T) {
	srv, msgRepo := setupServer(t)
	ctx := context.Background()

	res := callTool(t, srv.MCP(), "memory_log", map[string]any{
		"subject_id": "runner-1",
		"role":       "user",
		"content":    "Planning a 10k this weekend",
	})
	require.False(t, res.IsError, res.Text)

	pending, err := msgRepo.GetUnextractedMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "runner-1", pending[0].SubjectID)

	res = callTool(t, srv.MCP(), "memory_log", map[string]any{
		"subject_id": "runner-1",
		"role":       "system",
		"content":    "x",
	})
	assert.True(t, res.IsError)

	res = callTool(t, srv.MCP(), "memory_context", map[string]any{
		"subject_id": "runner-1",
		"query":      "how should I pace the 10k?",
	})
	require.False(t, res.IsError, res.Text)

	var msgs []core.Message
	require.NoError(t, json.Unmarshal([]byte(res.Text), &msgs))
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Planning a 10k this weekend", msgs[len(msgs)-1].Content)
}

func TestPerSubjectLock(t *testing.T) {
	srv, _ := setupServer(t)

	unlock := srv.lock("runner-1")
	done := make(chan struct{})
	go func() {
		release := srv.lock("runner-2")
		release()
		close(done)
	}()
	<-done
	unlock()

	again := srv.lock("runner-1")
	again()
}
