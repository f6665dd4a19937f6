package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/canvas-etl/internal/config"
	"github.com/JonMunkholm/canvas-etl/internal/core"
)

func newTypesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the configured canvas types in classification order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			canvas, err := config.LoadCanvasTypes(root.cfg.Import.CanvasConfig)
			if err != nil {
				return err
			}
			return printTypes(cmd.OutOrStdout(), canvas)
		},
	}
}

func printTypes(out io.Writer, canvas *config.CanvasTypes) error {
	var b strings.Builder
	for i, ct := range canvas.All() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\n  partner: %s (%s)\n", ct.Key, ct.PartnerName, ct.PartnerType)
		for _, field := range core.CanonicalFields {
			if src, ok := ct.Mapping[field]; ok {
				fmt.Fprintf(&b, "  %-26s <- %q\n", field, src)
			}
		}
		for _, field := range unknownFields(ct) {
			fmt.Fprintf(&b, "  %-26s <- %q (ignored)\n", field, ct.Mapping[field])
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}

// unknownFields returns the mapping keys that are not canonical fields, sorted.
func unknownFields(ct config.CanvasType) []string {
	known := make(map[string]bool, len(core.CanonicalFields))
	for _, f := range core.CanonicalFields {
		known[f] = true
	}
	var out []string
	for k := range ct.Mapping {
		if !known[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
