package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/pkg/titlematch"
)

type searchResult struct {
	Series string  `json:"series"`
	Score  float64 `json:"score"`
	Files  int     `json:"files"`
}

func newSearchCommand(cc *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search series names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := cc.store(ctx)
			if err != nil {
				return err
			}
			groups, err := store.ListGroups(ctx)
			if err != nil {
				return fmt.Errorf("list series: %w", err)
			}

			names := make([]string, len(groups))
			counts := make(map[string]int, len(groups))
			for i, g := range groups {
				names[i] = g.GroupKey
				counts[g.GroupKey] = g.ItemCount
			}

			query := strings.Join(args, " ")
			matches := titlematch.Rank(query, names, limit)
			results := make([]searchResult, 0, len(matches))
			for _, m := range matches {
				results = append(results, searchResult{Series: m.Title, Score: m.Score, Files: counts[m.Title]})
			}

			out := cmd.OutOrStdout()
			if cc.jsonOutput {
				return printJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "No series found matching %q\n", query)
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Series, strconv.Itoa(r.Files), fmt.Sprintf("%.2f", r.Score)})
			}
			fmt.Fprintln(out, renderTable([]string{"Series", "Files", "Score"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	return cmd
}
