package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/stridemem/internal/config"
	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/internal/storage/sqlite"
	"github.com/sandevgo/stridemem/pkg/log"
	"github.com/sandevgo/stridemem/pkg/retry"
	"github.com/sandevgo/stridemem/pkg/srv"
)

// app holds everything the commands share once the runtime is loaded.
type app struct {
	cfg       *config.AppConfig
	workerCfg *config.WorkerConfig

	db       *sql.DB
	messages *sqlite.MessagesRepo
	engine   *memory.Engine
	memory   *memory.Memory
}

func newApp(ctx context.Context) (*app, error) {
	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	// 1. Configuration
	a := &app{
		cfg:       config.NewAppConfig(ctx),
		workerCfg: config.NewWorkerConfig(ctx),
	}
	// STRIDE_DEBUG may only be set in .env
	if a.cfg.Debug {
		log.SetDebug(true)
	}
	memory.SetTokenizerDir(a.cfg.GetTokenizerPath())

	// 2. Storage
	db, err := initStorage(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.db = db
	a.messages = sqlite.NewMessagesRepo(db)

	// 3. Memory engine
	var opts []memory.Option
	if path := a.cfg.RulesPath; path != "" {
		tables, err := memory.LoadTables(path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		opts = append(opts, memory.WithTables(tables))
		log.FromCtx(ctx).Info().Str("path", path).Msg("loaded custom extraction rules")
	}
	a.engine = memory.NewEngine(sqlite.NewInsightsRepo(db), sqlite.NewSummariesRepo(db), opts...)

	a.memory = memory.NewMemory(
		a.cfg,
		a.messages,
		a.engine,
		memory.NewSysPrompt(a.cfg),
	)

	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// workers returns the background services that turn the message log into
// insights and keep storage bounded.
func (a *app) workers() []srv.Service {
	extraction := memory.NewExtractionWorker(a.engine, a.messages)
	extraction.Interval = a.workerCfg.ExtractionInterval
	extraction.BatchSize = a.workerCfg.ExtractionBatchSize
	extraction.SessionGap = a.workerCfg.SessionGap

	retention := memory.NewRetentionWorker(a.engine)
	retention.Interval = a.workerCfg.RetentionInterval
	retention.Retention = a.workerCfg.SummaryRetention

	return []srv.Service{extraction, retention}
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	var db *sql.DB
	err := retry.NewDefaultRetrier().Named("open database").Do(ctx, func() error {
		var err error
		db, err = sqlite.NewDB(ctx, cfg.GetDatabasePath())
		return err
	})
	return db, err
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
