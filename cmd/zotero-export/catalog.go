// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/zotero-export/internal/catalog"
	"github.com/pdiddy/zotero-export/pkg/types"
)

func newCatalogCmd(a *app) *cobra.Command {
	var cfg types.CatalogConfig

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Index and search a backup directory offline",
		Long: `Catalog maintains a SQLite database at <backup-dir>/index/catalog.db built
from the JSON files written by backup. Use subcommands to index, search,
or export annotations. The index/ directory is ignored by the backup's
git repository.`,
	}
	cmd.PersistentFlags().StringVar(&cfg.BackupDir, "backup-dir", "", "backup directory written by the backup command (required)")
	cmd.PersistentFlags().IntVar(&cfg.MaxResults, "max-results", 20, "default maximum number of search results")
	_ = cmd.MarkPersistentFlagRequired("backup-dir")

	cmd.AddCommand(
		newCatalogIndexCmd(&cfg),
		newCatalogSearchCmd(&cfg),
		newCatalogExportCmd(&cfg),
	)
	return cmd
}

// --- index subcommand ---

func newCatalogIndexCmd(cfg *types.CatalogConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Ingest the backup into the catalog",
		Long: `Index reads items/, attachments/ and annotations/ from the backup directory
and updates the catalog. Files unchanged since the last run are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := catalog.NewStore(*cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Ingest(cmd.Context(), printer(cmd))
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d file(s) failed indexing", summary.Failed)
			}
			return nil
		},
	}
}

// --- search subcommand ---

func newCatalogSearchCmd(cfg *types.CatalogConfig) *cobra.Command {
	var (
		opts       catalog.QueryOptions
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search annotation text and comments",
		Long: `Search matches annotation text and comments (case-insensitive substring)
and can be narrowed by --item and --type. At least one of a query, --item
or --type is required.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Query = args[0]
			}
			if opts.IsEmpty() {
				return catalog.ErrEmptyQuery
			}

			store, err := catalog.NewStore(*cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := store.Search(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return formatSearchOutput(cmd.OutOrStdout(), results, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&opts.ItemKey, "item", "", "restrict to annotations of one item key")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by annotation type (highlight, note, image, ink)")
	cmd.Flags().IntVar(&opts.MaxResults, "limit", 0, "maximum results (default --max-results)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
	return cmd
}

func formatSearchOutput(w io.Writer, results []catalog.Result, jsonOutput bool) error {
	if jsonOutput {
		if results == nil {
			results = []catalog.Result{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-10s  %-10s  %-6s  %-30s  %s\n", "Item", "Type", "Page", "Title", "Text")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range results {
		text := r.Text
		if text == "" {
			text = r.Comment
		}
		fmt.Fprintf(w, "%-10s  %-10s  %-6s  %-30s  %s\n",
			r.ItemKey, r.Type, r.PageLabel, truncate(r.ItemTitle, 30), truncate(oneLine(text), 60))
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// --- export subcommand ---

func newCatalogExportCmd(cfg *types.CatalogConfig) *cobra.Command {
	var (
		opts   catalog.QueryOptions
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export catalog annotations to YAML or JSON",
		Long: `Export writes all annotations (or those matching --item and --type) to
<backup-dir>/index/export.yaml or export.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := catalog.NewStore(*cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var path string
			switch format {
			case "yaml", "":
				path, err = store.ExportYAML(cmd.Context(), opts)
			case "json":
				path, err = store.ExportJSON(cmd.Context(), opts)
			default:
				return fmt.Errorf("unsupported format %q: use yaml or json", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().StringVar(&opts.ItemKey, "item", "", "restrict to annotations of one item key")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by annotation type")
	return cmd
}
