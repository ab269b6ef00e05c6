package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/internal/service/ui"
	"github.com/spf13/cobra"
)

var (
	summarizeSubject string
	summarizeFile    string
)

var summarizeCmd = &cobra.Command{
	Use:          "summarize",
	Short:        "Summarise a finished conversation",
	Long:         `Conversations of at least six messages are stored as the subject's summary for today. Shorter ones are only printed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			data, err := readInput(summarizeFile)
			if err != nil {
				return err
			}
			msgs, err := memory.ParseMessages(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary, err := a.engine.StoreConversationSummary(ctx, summarizeSubject, msgs, time.Now())
			if err != nil {
				return err
			}
			if summary == nil {
				fmt.Fprintln(out, ui.DescStyle.Render("not stored: conversation too short"))
				fmt.Fprintln(out, a.engine.Tables().Consolidate(msgs))
				return nil
			}

			fmt.Fprintln(out, ui.RenderSummary(summary))
			return nil
		})
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeSubject, "subject", "s", "", "subject id")
	summarizeCmd.Flags().StringVarP(&summarizeFile, "file", "f", "-", "messages JSON file, - for stdin")
	_ = summarizeCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(summarizeCmd)
}
