package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/codec"
	"github.com/vmunix/reelbox/internal/events"
)

func newDeleteSeriesCommand(cc *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-series <series>",
		Short: "Delete every file of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			series := catalog.NormalizeGroupKey(args[0])
			if series == "" {
				return fmt.Errorf("series name is empty")
			}
			if !yes {
				return fmt.Errorf("refusing to delete '%s' without --yes", series)
			}

			db, err := cc.openDB(ctx)
			if err != nil {
				return err
			}
			removed, err := catalog.NewStore(db).DeleteGroup(ctx, series)
			if err != nil {
				return fmt.Errorf("delete series: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if removed == 0 {
				fmt.Fprintln(out, paint(fmt.Sprintf("No files found for series '%s'", series), ansiYellow, colorize))
				return nil
			}

			// the token is now dangling; the daemon's sweep would catch it too
			swept, err := codec.New(db, cc.logger(cmd.ErrOrStderr())).Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep mappings: %w", err)
			}
			if _, err := events.NewEventLog(db).Append(ctx, &events.GroupDeleted{
				BaseEvent: events.NewBaseEvent(events.EventGroupDeleted, events.EntityGroup, 0),
				GroupKey:  series,
				Removed:   removed,
			}); err != nil {
				return fmt.Errorf("record event: %w", err)
			}

			fmt.Fprintln(out, paint(fmt.Sprintf("Deleted %d files from '%s'", removed, series), ansiGreen, colorize))
			if swept > 0 {
				fmt.Fprintf(out, "Removed %d series link(s)\n", swept)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}
