package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	ctx = WithComponent(ctx, "extractor")
	FromCtx(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"extractor"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestGooseLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	NewGooseLoggerFromCtx(ctx).Printf("applied %d migrations\n", 3)

	assert.Contains(t, buf.String(), `"message":"applied 3 migrations"`)
	assert.Contains(t, buf.String(), `"component":"migrations"`)
	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestSetDebug(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	SetDebug(false)
	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	SetDebug(true)
	logger.Debug().Msg("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, levelFor(true))
	assert.Equal(t, zerolog.InfoLevel, levelFor(false))
}

func TestConsoleWriter_PlainOutputForNonTerminals(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))

	logger := zerolog.New(consoleWriter(&buf, !isTerminal(&buf)))
	logger.Info().Str("component", "mcp").Msg("ready")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "component=mcp")
	assert.NotContains(t, out, "\x1b[")
}
