package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/internal/service/ui"
	"github.com/sandevgo/stridemem/pkg/conv"
	"github.com/spf13/cobra"
)

var (
	recallSubject string
	recallLimit   int
	recallHTML    bool
	recallJSON    bool
)

var recallCmd = &cobra.Command{
	Use:          "recall [context]",
	Short:        "Show the insights most relevant to a message",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			limit := recallLimit
			if limit <= 0 {
				limit = a.cfg.GetRecallLimit()
			}

			insights, err := a.engine.GetRelevantInsights(ctx, recallSubject, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case recallJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(insights)
			case recallHTML:
				summary, err := a.engine.LatestSummary(ctx, recallSubject)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, conv.MarkdownToHTML([]byte(memory.RenderKnowledge(insights, summary))))
			default:
				fmt.Fprintln(out, ui.RenderInsights(insights))
			}
			return nil
		})
	},
}

func init() {
	recallCmd.Flags().StringVarP(&recallSubject, "subject", "s", "", "subject id")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 0, "maximum insights (default MEMORY_RECALL_LIMIT)")
	recallCmd.Flags().BoolVar(&recallHTML, "html", false, "render the knowledge block as sanitized HTML")
	recallCmd.Flags().BoolVar(&recallJSON, "json", false, "print insights as JSON")
	recallCmd.MarkFlagsMutuallyExclusive("html", "json")
	_ = recallCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(recallCmd)
}
