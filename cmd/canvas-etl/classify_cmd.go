package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvas-etl/internal/config"
	"github.com/JonMunkholm/canvas-etl/internal/core"
)

func newClassifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Show the canvas type each intake file would be imported as",
		Long:  "Dry run: lists the intake files with their matched canvas type. No database connection is opened and no file is moved.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			canvas, err := config.LoadCanvasTypes(root.cfg.Import.CanvasConfig)
			if err != nil {
				return err
			}
			names, err := core.Discover(root.cfg.Import.IntakeDir)
			if err != nil {
				return fmt.Errorf("list intake directory: %w", err)
			}
			return printClassification(cmd.OutOrStdout(), names, canvas)
		},
	}
}

func printClassification(out io.Writer, names []string, canvas *config.CanvasTypes) error {
	if len(names) == 0 {
		_, err := fmt.Fprintln(out, "no files to import")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tCANVAS TYPE\tPARTNER")
	unrecognized := 0
	for _, name := range names {
		ct, ok := core.Classify(name, canvas)
		if !ok {
			unrecognized++
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, "unrecognized", "-")
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, ct.Key, ct.PartnerName)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if unrecognized > 0 {
		_, err := fmt.Fprintf(out, "\n%d unrecognized; expected prefixes: %v\n", unrecognized, canvas.Keys())
		return err
	}
	return nil
}
