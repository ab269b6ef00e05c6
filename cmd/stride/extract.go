package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/internal/service/ui"
	"github.com/spf13/cobra"
)

var (
	extractSubject string
	extractFile    string
	extractJSON    bool
)

var extractCmd = &cobra.Command{
	Use:          "extract",
	Short:        "Extract and store insights from a conversation",
	Long:         `Reads a JSON array of {"role", "content"} messages from --file (or stdin) and stores the insights found in it.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			data, err := readInput(extractFile)
			if err != nil {
				return err
			}
			msgs, err := memory.ParseMessages(data)
			if err != nil {
				return err
			}

			res, err := a.engine.ExtractAndStore(ctx, extractSubject, msgs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if extractJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintln(out, ui.TitleStyle.Render(fmt.Sprintf("%d inserted, %d merged", len(res.Inserted), len(res.Merged))))
			if len(res.Inserted) > 0 {
				fmt.Fprintln(out, ui.RenderInsights(res.Inserted))
			}
			if len(res.Merged) > 0 {
				fmt.Fprintln(out, ui.RenderInsights(res.Merged))
			}
			return nil
		})
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractSubject, "subject", "s", "", "subject id")
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "-", "messages JSON file, - for stdin")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the result as JSON")
	_ = extractCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(extractCmd)
}
