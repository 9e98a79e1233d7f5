package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/reelbox/internal/config"
)

func newConfigCommand(cc *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.AddCommand(newConfigCheckCommand(cc), newConfigInitCommand(), newConfigPathCommand(cc))
	return configCmd
}

func newConfigCheckCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration file",
		Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the daemon.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(cc, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Validating %s...\n\n", path)

			cfg, err := config.Load(path)
			if err != nil {
				var configErr *config.ConfigError
				if errors.As(err, &configErr) {
					printConfigErrors(out, configErr)
					return fmt.Errorf("configuration invalid")
				}
				return fmt.Errorf("failed to load config: %w", err)
			}

			printConfigSummary(out, cfg)
			fmt.Fprintln(out, paint("\nConfiguration valid!", ansiGreen, shouldColorize(out)))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nSet BOT_TOKEN, DATABASE_CHANNEL and ADMINS (or a .env file next to it).\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigPathCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(cc, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func resolveConfigPath(cc *commandContext, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case cc.configFlag != "":
		return cc.configFlag, nil
	default:
		return config.Discover()
	}
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Metrics:    %s:%d (log: %s, %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel, cfg.Server.LogFormat)
	fmt.Fprintf(w, "  Database:   %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  Storage:    %d\n", cfg.Telegram.StorageChat)

	admins := make([]string, len(cfg.Telegram.Admins))
	for i, id := range cfg.Telegram.Admins {
		admins[i] = fmt.Sprint(id)
	}
	fmt.Fprintf(w, "  Admins:     %s\n", strings.Join(admins, ", "))

	if cfg.Telegram.SponsorChat != "" {
		fmt.Fprintf(w, "  Sponsor:    %s\n", cfg.Telegram.SponsorChat)
	}
	if cfg.Telegram.MainChat != "" {
		fmt.Fprintf(w, "  Channel:    %s\n", cfg.Telegram.MainChat)
	}
	fmt.Fprintf(w, "  Delivery:   %d attempts, %s between items, %d workers\n",
		cfg.Delivery.MaxAttempts, cfg.Delivery.InterItemDelay, cfg.Delivery.Workers)
}
