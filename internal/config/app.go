package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/stridemem/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"STRIDE_RUNTIME_PATH" envDefault:".stride"`
	Debug       bool   `env:"STRIDE_DEBUG" envDefault:"false"`

	// Context Management
	ContextWindowSize int `env:"CONTEXT_WINDOW_SIZE" envDefault:"30"`
	RecallLimit       int `env:"MEMORY_RECALL_LIMIT" envDefault:"5"`

	// History beyond this many tokens is dropped, oldest first. 0 disables it.
	HistoryTokenBudget int `env:"HISTORY_TOKEN_BUDGET" envDefault:"3000"`

	// Optional override of the embedded extraction rules
	RulesPath string `env:"MEMORY_RULES_PATH"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = resolvePath(c.RuntimePath)
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetSystemPath() string {
	return filepath.Join(c.RuntimePath, "SYSTEM.md")
}

func (c AppConfig) GetIdentityPath() string {
	return filepath.Join(c.RuntimePath, "IDENTITY.md")
}

func (c AppConfig) GetUserProfilePath() string {
	return filepath.Join(c.RuntimePath, "USER.md")
}

func (c AppConfig) GetTokenizerPath() string {
	return filepath.Join(c.RuntimePath, "tokenizer")
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "stride.db")
}

func (c AppConfig) GetContextWindowSize() int {
	return c.ContextWindowSize
}

func (c AppConfig) GetRecallLimit() int {
	return c.RecallLimit
}

func (c AppConfig) GetHistoryTokenBudget() int {
	return c.HistoryTokenBudget
}
