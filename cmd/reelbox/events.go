package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/events"
)

func newEventsCommand(cc *commandContext) *cobra.Command {
	var (
		limit    int
		entity   string
		entityID int64
		details  bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := cc.openDB(ctx)
			if err != nil {
				return err
			}
			log := events.NewEventLog(db)

			var raw []events.RawEvent
			if entity != "" {
				raw, err = log.ForEntity(ctx, entity, entityID)
			} else {
				raw, err = log.Recent(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("failed to fetch events: %w", err)
			}

			out := cmd.OutOrStdout()
			if cc.jsonOutput {
				return printJSON(out, raw)
			}
			if len(raw) == 0 {
				fmt.Fprintln(out, "No events")
				return nil
			}

			registry := events.DefaultRegistry()
			headers := []string{"Time", "Type", "Entity"}
			if details {
				headers = append(headers, "Details")
			}
			rows := make([][]string, 0, len(raw))
			for _, e := range raw {
				row := []string{
					humanize.Time(e.OccurredAt),
					e.EventType,
					e.EntityType + "/" + strconv.FormatInt(e.EntityID, 10),
				}
				if details {
					row = append(row, describe(registry, e))
				}
				rows = append(rows, row)
			}
			fmt.Fprintf(out, "Recent Events (%d):\n", len(raw))
			fmt.Fprintln(out, renderTable(headers, rows, nil, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	cmd.Flags().StringVar(&entity, "entity", "", "Only events of this entity type (delivery, file, group)")
	cmd.Flags().Int64Var(&entityID, "id", 0, "Entity ID used with --entity")
	cmd.Flags().BoolVar(&details, "details", false, "Decode event payloads")
	return cmd
}

// describe summarizes a decoded event, falling back to the raw payload for
// types the registry does not know.
func describe(registry *events.Registry, raw events.RawEvent) string {
	e, err := registry.Unmarshal(raw)
	if err != nil {
		return raw.Payload
	}
	switch ev := e.(type) {
	case *events.DeliveryStarted:
		return fmt.Sprintf("%s: %d items", ev.Label, ev.Total)
	case *events.DeliveryCompleted:
		return fmt.Sprintf("sent %d/%d, %d errors, %d retries", ev.Sent, ev.Total, ev.Errors, ev.Retries)
	case *events.DeliveryFailed:
		return fmt.Sprintf("%s (%d/%d errors)", ev.Reason, ev.Errors, ev.Total)
	case *events.FileAdded:
		return fmt.Sprintf("%s %s%s %s", ev.GroupKey, ev.Season, ev.Episode, ev.Resolution)
	case *events.GroupDeleted:
		return fmt.Sprintf("%s: %d files", ev.GroupKey, ev.Removed)
	case *events.CleanupCompleted:
		return fmt.Sprintf("%d duplicates, %d links", ev.DuplicatesRemoved, ev.MappingsRemoved)
	}
	return raw.Payload
}
