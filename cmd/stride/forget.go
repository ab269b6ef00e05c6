package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/stridemem/internal/core"
	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:          "forget <insight-id>",
	Short:        "Stop recalling an insight",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.engine.Forget(ctx, args[0]); err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return fmt.Errorf("insight %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "insight %s forgotten\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
