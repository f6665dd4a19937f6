package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvas-etl/internal/config"
)

// rootOptions carries the persistent flags and the configuration they
// override. cfg is populated by the root PersistentPreRunE.
type rootOptions struct {
	EnvFile      string
	IntakeDir    string
	ArchiveDir   string
	CanvasConfig string
	LogLevel     string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "canvas-etl",
		Short:         "Import partner canvas files (CSV, XLSX) into the relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	f.StringVar(&opts.IntakeDir, "intake", "", "intake directory (overrides CANVAS_INTAKE_DIR)")
	f.StringVar(&opts.ArchiveDir, "archive", "", "archive directory (overrides CANVAS_ARCHIVE_DIR)")
	f.StringVar(&opts.CanvasConfig, "canvas-config", "", "canvas type file (overrides CANVAS_CONFIG)")
	f.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newClassifyCmd(opts))
	cmd.AddCommand(newTypesCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

// load reads the dotenv file (Overload: file values win over the
// environment), loads the configuration and applies flag overrides.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := godotenv.Overload(o.EnvFile); err != nil {
		if cmd.Flags().Changed("env-file") || !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", o.EnvFile, err)
		}
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("intake") {
		cfg.Import.IntakeDir = o.IntakeDir
	}
	if flags.Changed("archive") {
		cfg.Import.ArchiveDir = o.ArchiveDir
	}
	if flags.Changed("canvas-config") {
		cfg.Import.CanvasConfig = o.CanvasConfig
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	o.cfg = cfg
	return nil
}

// Execute runs the CLI and returns the process exit code: 0 when the command
// completed, 1 on usage, configuration or connection errors.
func Execute(ctx context.Context) int {
	return execute(ctx, newRootCmd(), os.Args[1:])
}

func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}
