package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvas-etl/internal/database"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent files recorded in the import ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg := root.cfg
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Database.ConnectTimeout)
			defer cancel()

			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			files, err := database.New(pool).ListImportFiles(ctx, int32(limit))
			if err != nil {
				return fmt.Errorf("list import files: %w", err)
			}
			return printHistory(cmd.OutOrStdout(), files)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}

func printHistory(out io.Writer, files []database.ImportFile) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(out, "no imports recorded")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tFILE\tCANVAS TYPE\tSTATUS\tIMPORTED\tDUPLICATES\tERRORS\tDURATION\tID")
	for _, f := range files {
		id := "-"
		if f.ID.Valid {
			id = uuid.UUID(f.ID.Bytes).String()
		}
		started, duration := "-", "-"
		if f.StartedAt.Valid {
			started = f.StartedAt.Time.Local().Format(time.DateTime)
			if f.FinishedAt.Valid {
				duration = f.FinishedAt.Time.Sub(f.StartedAt.Time).Round(time.Millisecond).String()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			started, f.FileName, f.CanvasType, f.Status,
			f.Imported, f.Duplicates, f.Errors, duration, id)
	}
	return w.Flush()
}
