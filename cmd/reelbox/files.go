package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/catalog"
)

type fileRow struct {
	ID         int64  `json:"id"`
	Season     string `json:"season,omitempty"`
	Episode    string `json:"episode,omitempty"`
	Resolution string `json:"resolution"`
	Kind       string `json:"kind"`
	SizeBytes  int64  `json:"size_bytes"`
	MessageID  int64  `json:"message_id"`
}

func newFilesCommand(cc *commandContext) *cobra.Command {
	var resolution string
	cmd := &cobra.Command{
		Use:   "files [series]",
		Short: "List series, or the files stored for one series",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runFilesOverview(cmd, cc)
			}
			return runFilesForSeries(cmd, cc, args[0], resolution)
		},
	}
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Only this resolution")
	return cmd
}

func runFilesOverview(cmd *cobra.Command, cc *commandContext) error {
	store, err := cc.store(cmd.Context())
	if err != nil {
		return err
	}
	rows, err := store.ListGroupResolutions(cmd.Context())
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	out := cmd.OutOrStdout()
	if cc.jsonOutput {
		return printJSON(out, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No files in database")
		return nil
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.GroupKey, r.Resolution, strconv.Itoa(r.ItemCount)})
	}
	fmt.Fprintln(out, renderTable([]string{"Series", "Resolution", "Files"}, table,
		[]columnAlignment{alignLeft, alignLeft, alignRight}, shouldColorize(out)))
	return nil
}

func runFilesForSeries(cmd *cobra.Command, cc *commandContext, series, resolution string) error {
	ctx := cmd.Context()
	store, err := cc.store(ctx)
	if err != nil {
		return err
	}

	series = catalog.NormalizeGroupKey(series)
	var resolutions []string
	if resolution != "" {
		resolutions = []string{catalog.NormalizeResolution(resolution)}
	} else {
		counts, err := store.ListResolutions(ctx, series)
		if err != nil {
			return fmt.Errorf("list resolutions: %w", err)
		}
		for _, c := range counts {
			resolutions = append(resolutions, c.Resolution)
		}
	}

	var files []fileRow
	for _, res := range resolutions {
		items, err := store.ListItems(ctx, series, res)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		for _, it := range items {
			files = append(files, fileRow{
				ID: it.ID, Season: it.Season, Episode: it.Episode, Resolution: it.Resolution,
				Kind: string(it.Kind), SizeBytes: it.SizeBytes, MessageID: it.Storage.MessageID,
			})
		}
	}

	out := cmd.OutOrStdout()
	if cc.jsonOutput {
		return printJSON(out, files)
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No files found for series '%s'\n", series)
		return nil
	}

	rows := make([][]string, 0, len(files))
	for _, f := range files {
		size := "-"
		if f.SizeBytes > 0 {
			size = humanize.IBytes(uint64(f.SizeBytes))
		}
		rows = append(rows, []string{
			strconv.FormatInt(f.ID, 10), f.Season, f.Episode, f.Resolution, f.Kind, size,
			strconv.FormatInt(f.MessageID, 10),
		})
	}
	fmt.Fprintf(out, "%s (%d files)\n", series, len(files))
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Season", "Episode", "Resolution", "Kind", "Size", "Message"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		shouldColorize(out)))
	return nil
}
