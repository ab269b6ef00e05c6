package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/stridemem/pkg/log"
	"github.com/sandevgo/stridemem/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the background workers",
	Long:  `Starts the extraction worker, which turns logged messages into insights and summaries, and the retention worker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting stride")

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		// the database closes after the workers stop
		services := append([]srv.Service{srv.NewCleanup(a.Close)}, a.workers()...)

		srv.StartServices(ctx, services)

		// Wait for shutdown signal
		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("stride has been shut down gracefully")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
