package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sandevgo/stridemem/configs"
	"github.com/sandevgo/stridemem/pkg/env"
	"github.com/sandevgo/stridemem/pkg/log"
)

var ErrEnvExists = errors.New(".env already exists")

var promptFiles = []string{"SYSTEM.md", "IDENTITY.md", "USER.md"}

type Result struct {
	EnvPath string
	Written []string
	Skipped []string
}

// Installer prepares a runtime directory: the .env file rendered from config
// defaults and the default prompt files.
type Installer struct {
	RuntimePath string
	// Force overwrites an existing .env. Prompt files are never overwritten.
	Force bool
}

func New(runtimePath string) *Installer {
	return &Installer{RuntimePath: runtimePath}
}

func (i *Installer) Install(ctx context.Context, cfgs ...any) (Result, error) {
	logger := log.FromCtx(ctx)
	res := Result{EnvPath: filepath.Join(i.RuntimePath, ".env")}

	if err := os.MkdirAll(i.RuntimePath, 0o755); err != nil {
		return res, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	if err := i.writeEnv(res.EnvPath, cfgs); err != nil {
		return res, err
	}
	logger.Debug().Str("path", res.EnvPath).Msg(".env written")

	for _, name := range promptFiles {
		dst := filepath.Join(i.RuntimePath, name)
		if _, err := os.Stat(dst); err == nil {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		data, err := configs.FS.ReadFile(name)
		if err != nil {
			return res, fmt.Errorf("failed to read embedded %s: %w", name, err)
		}
		if name == "SYSTEM.md" {
			data = []byte(fmt.Sprintf(string(data), i.RuntimePath))
		}

		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		res.Written = append(res.Written, name)
	}

	return res, nil
}

func (i *Installer) writeEnv(path string, cfgs []any) error {
	_, err := os.Stat(path)
	switch {
	case err == nil && !i.Force:
		return fmt.Errorf("%w at %s", ErrEnvExists, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}

	content, err := env.MarshalEnv(cfgs...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
