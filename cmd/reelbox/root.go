package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/config"
)

// commandContext carries the persistent flags and lazily opened resources
// shared by all subcommands.
type commandContext struct {
	configFlag string
	dbFlag     string
	jsonOutput bool
	verbose    bool

	cfg *config.Config
	db  *sql.DB
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:   "reelbox",
		Short: "Admin CLI for the reelbox catalog",
		Long: `reelbox - admin CLI for the reelbox catalog

Works directly on the local catalog database. Run 'reelboxd' to start
the bot daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cc.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&cc.dbFlag, "db", "", "Catalog database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&cc.jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&cc.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("reelbox {{.Version}}\n")

	rootCmd.AddCommand(
		newFilesCommand(cc),
		newStatsCommand(cc),
		newDeleteSeriesCommand(cc),
		newCleanupCommand(cc),
		newSearchCommand(cc),
		newEventsCommand(cc),
		newConfigCommand(cc),
		newMigrateCommand(cc),
	)
	return rootCmd
}

// config loads the configuration without validation: the admin CLI only
// needs the database location, not bot credentials.
func (cc *commandContext) loadConfig() (*config.Config, error) {
	if cc.cfg != nil {
		return cc.cfg, nil
	}
	path := cc.configFlag
	if path == "" {
		p, err := config.Discover()
		if err != nil {
			if cc.dbFlag != "" {
				cc.cfg = &config.Config{Database: config.DatabaseConfig{Path: cc.dbFlag}}
				return cc.cfg, nil
			}
			return nil, err
		}
		path = p
	}
	cfg, err := config.LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}
	cc.cfg = cfg
	return cfg, nil
}

func (cc *commandContext) dbPath() (string, error) {
	if cc.dbFlag != "" {
		return cc.dbFlag, nil
	}
	cfg, err := cc.loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Database.Path, nil
}

// openDB opens the catalog, applying pending migrations.
func (cc *commandContext) openDB(ctx context.Context) (*sql.DB, error) {
	if cc.db != nil {
		return cc.db, nil
	}
	path, err := cc.dbPath()
	if err != nil {
		return nil, err
	}
	db, err := catalog.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	cc.db = db
	return db, nil
}

func (cc *commandContext) store(ctx context.Context) (*catalog.Store, error) {
	db, err := cc.openDB(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewStore(db), nil
}

func (cc *commandContext) logger(w io.Writer) *slog.Logger {
	if !cc.verbose {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (cc *commandContext) close() {
	if cc.db != nil {
		_ = cc.db.Close()
		cc.db = nil
	}
}
