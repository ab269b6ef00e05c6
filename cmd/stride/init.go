package main

import (
	"fmt"

	"github.com/sandevgo/stridemem/internal/config"
	"github.com/sandevgo/stridemem/internal/service/installer"
	"github.com/sandevgo/stridemem/pkg/log"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:           "init",
	Short:         "Create the runtime directory with default settings",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		appCfg := config.NewAppConfig(ctx)
		workerCfg := config.NewWorkerConfig(ctx)

		inst := installer.New(appCfg.GetRuntimePath())
		inst.Force = initForce

		res, err := inst.Install(ctx, appCfg, workerCfg)
		if err != nil {
			return err
		}

		for _, name := range res.Skipped {
			logger.Info().Str("file", name).Msg("kept existing file")
		}
		logger.Info().Msgf("initialized runtime directory at: %s", appCfg.GetRuntimePath())
		fmt.Fprintln(cmd.OutOrStdout(), "Done. Run 'stride mcp' or 'stride start'.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing .env")
	rootCmd.AddCommand(initCmd)
}
