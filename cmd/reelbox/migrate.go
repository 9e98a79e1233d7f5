package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/migrations"
)

func newMigrateCommand(cc *commandContext) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, err := cc.dbPath()
			if err != nil {
				return err
			}
			if path != ":memory:" {
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("create db dir: %w", err)
				}
			}
			db, err := sql.Open("sqlite", catalog.DSN(path))
			if err != nil {
				return fmt.Errorf("open sqlite db: %w", err)
			}
			defer func() { _ = db.Close() }()

			out := cmd.OutOrStdout()
			if status {
				current, err := migrations.Current(ctx, db)
				if err != nil {
					return err
				}
				all, err := migrations.Load()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(all))
				for _, m := range all {
					state := "pending"
					if current != "" && m.Version <= current {
						state = "applied"
					}
					rows = append(rows, []string{m.Version, state})
				}
				fmt.Fprintln(out, renderTable([]string{"Version", "State"}, rows, nil, shouldColorize(out)))
				return nil
			}

			applied, err := migrations.Apply(ctx, db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "Schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(out, "Applied %s\n", v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Show migration state without applying")
	return cmd
}
