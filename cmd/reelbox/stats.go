package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/migrations"
)

func newStatsCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := cc.store(ctx)
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			schema, err := migrations.Current(ctx, store.DB())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cc.jsonOutput {
				return printJSON(out, map[string]any{
					"series":    stats.Series,
					"files":     stats.Files,
					"downloads": stats.Downloads,
					"mappings":  stats.Mappings,
					"schema":    schema,
				})
			}
			rows := [][]string{
				{"Series", humanize.Comma(int64(stats.Series))},
				{"Files", humanize.Comma(int64(stats.Files))},
				{"Downloads", humanize.Comma(int64(stats.Downloads))},
				{"Series links", humanize.Comma(int64(stats.Mappings))},
				{"Schema", schema},
			}
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}, shouldColorize(out)))
			return nil
		},
	}
}
