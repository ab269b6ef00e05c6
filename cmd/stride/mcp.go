package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/stridemem/internal/transport/mcp"
	"github.com/sandevgo/stridemem/pkg/log"
	"github.com/sandevgo/stridemem/pkg/srv"
	"github.com/spf13/cobra"
)

var mcpWorkers bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over MCP stdio",
	Long:  `Runs a Model Context Protocol server on stdin/stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		services := []srv.Service{srv.NewCleanup(a.Close)}
		if mcpWorkers {
			services = append(services, a.workers()...)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		srv.StartServices(ctx, services)

		server := mcp.NewServer(a.engine, a.memory, a.cfg.GetRecallLimit(), os.Stdin, os.Stdout)
		serveErr := server.Start(ctx)

		// stdin closed or signal received
		cancel()
		srv.ShutdownServices(ctx, services)
		log.FromCtx(ctx).Info().Msg("mcp server stopped")
		return serveErr
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpWorkers, "workers", true, "run the extraction and retention workers alongside the server")
	rootCmd.AddCommand(mcpCmd)
}
