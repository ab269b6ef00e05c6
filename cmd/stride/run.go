package main

import (
	"context"

	"github.com/spf13/cobra"
)

// runWithApp sets up logging and the app for one-shot commands and closes
// the database afterwards.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	var flushLog func()
	ctx, flushLog = setupLogger(ctx)
	defer flushLog()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
