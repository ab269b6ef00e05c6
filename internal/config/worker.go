package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/stridemem/pkg/log"
)

type WorkerConfig struct {
	ExtractionInterval  time.Duration `env:"EXTRACTION_INTERVAL" envDefault:"1m"`
	ExtractionBatchSize int           `env:"EXTRACTION_BATCH_SIZE" envDefault:"100"`
	// Messages further apart than SessionGap belong to different conversations.
	SessionGap time.Duration `env:"SESSION_GAP" envDefault:"30m"`

	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"1h"`
	SummaryRetention  int           `env:"SUMMARY_RETENTION" envDefault:"100"`
}

func NewWorkerConfig(ctx context.Context) *WorkerConfig {
	c := &WorkerConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Worker config")
	}
	return c
}
