package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvas-etl/internal/config"
	"github.com/JonMunkholm/canvas-etl/internal/core"
	"github.com/JonMunkholm/canvas-etl/internal/logging"
	"github.com/JonMunkholm/canvas-etl/internal/web"
)

type runOptions struct {
	BatchSize int
	NoLedger  bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import every recognized intake file and archive it",
		Long: `Scans the intake directory, classifies each file by its canvas type prefix,
imports its rows and moves it to the archive directory.

Unrecognized files and files that cannot be read stay in the intake directory.
Row-level failures are logged and counted; they never fail the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("batch-size") {
				if opts.BatchSize <= 0 {
					return fmt.Errorf("--batch-size must be positive")
				}
				cfg.Import.BatchSize = opts.BatchSize
			}
			if opts.NoLedger {
				cfg.Import.Ledger = false
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			connector := &core.PgConnector{
				URL:            cfg.Database.URL,
				ConnectTimeout: cfg.Database.ConnectTimeout,
			}
			return runImport(cmd.Context(), cfg, connector, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "inserted rows between commits (overrides IMPORT_BATCH_SIZE)")
	cmd.Flags().BoolVar(&opts.NoLedger, "no-ledger", false, "do not record processed files in import_files")
	return cmd
}

// runImport performs one run against conn. Logs go to out and to a per-run
// file under cfg.Logging.Dir.
func runImport(ctx context.Context, cfg *config.Config, conn core.Connector, out io.Writer) error {
	start := time.Now()

	logFile, err := logging.OpenRunLog(cfg.Logging.Dir, start)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, io.MultiWriter(out, logFile))
	runID := uuid.NewString()
	ctx = logging.WithRun(logging.WithLogger(ctx, logger), runID)
	logger = logging.FromContext(ctx)

	logger.Info("run started", "config", cfg.String(), "log_file", logFile.Name())

	canvas, err := config.LoadCanvasTypes(cfg.Import.CanvasConfig)
	if err != nil {
		logger.Error("cannot load canvas types", "path", cfg.Import.CanvasConfig, "error", err)
		return err
	}
	logger.Info("canvas types loaded", "count", canvas.Len(), "keys", canvas.Keys())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewMetrics(reg)

	if cfg.Metrics.Addr != "" {
		srv := web.NewServer(reg)
		if err := srv.Start(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("start metrics endpoint: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Metrics.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics endpoint shutdown", "error", err)
			}
		}()
	}

	runner := &core.Runner{
		Importer: &core.Importer{
			Connector: conn,
			BatchSize: cfg.Import.BatchSize,
			Ledger:    cfg.Import.Ledger,
			Metrics:   metrics,
		},
		Canvas:     canvas,
		IntakeDir:  cfg.Import.IntakeDir,
		ArchiveDir: cfg.Import.ArchiveDir,
		Metrics:    metrics,
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Warn("run interrupted",
			"archived", len(summary.Archived),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return err
	}

	logger.Info("run complete", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
