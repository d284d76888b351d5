// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/zotero-export/internal/httputil"
	"github.com/pdiddy/zotero-export/internal/markdown"
	"github.com/pdiddy/zotero-export/pkg/types"
)

func newExportCmd(a *app) *cobra.Command {
	var cfg types.ExportConfig

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export annotated items to Markdown notes",
		Long: `Export fetches up to --limit top-level items and writes one Markdown file
per item that has at least one attachment with annotations. Files are named
<title>_<key>.md and overwritten on re-runs; items without annotations are
skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			client, err := a.newClient(httputil.NoDelay)
			if err != nil {
				return err
			}

			p := printer(cmd)
			summary, err := markdown.Export(cmd.Context(), client, cfg, p)
			if err != nil {
				return err
			}
			p.Summary("Export:", "%d written, %d skipped (total: %d)",
				summary.Visited, summary.Skipped, summary.Total())
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "o", "", "directory to write Markdown files into (required)")
	cmd.Flags().IntVarP(&cfg.Limit, "limit", "l", 100, "maximum number of top-level items to fetch")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}
