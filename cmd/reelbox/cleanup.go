package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/codec"
	"github.com/vmunix/reelbox/internal/events"
	"github.com/vmunix/reelbox/internal/handlers"
)

func newCleanupCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove duplicate files and stale series links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := cc.openDB(ctx)
			if err != nil {
				return err
			}
			cfg, err := cc.loadConfig()
			if err != nil {
				return err
			}

			logger := cc.logger(cmd.ErrOrStderr())
			eventLog := events.NewEventLog(db)
			bus := events.NewBus(eventLog, logger)
			defer func() { _ = bus.Close() }()

			sweep := handlers.NewSweepHandler(bus, catalog.NewStore(db), codec.New(db, logger), eventLog,
				handlers.SweepConfig{EventRetention: cfg.Cleanup.EventRetention}, logger)

			dups, mappings, err := sweep.Cleanup(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cc.jsonOutput {
				return printJSON(out, map[string]int64{"duplicates_removed": dups, "mappings_removed": mappings})
			}
			fmt.Fprintf(out, "Cleanup complete: removed %d duplicate file(s) and %d stale series link(s).\n", dups, mappings)
			return nil
		},
	}
}
