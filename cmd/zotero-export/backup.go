// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/zotero-export/internal/backup"
	"github.com/pdiddy/zotero-export/internal/httputil"
	"github.com/pdiddy/zotero-export/pkg/types"
)

func newBackupCmd(a *app) *cobra.Command {
	var (
		cfg           types.BackupConfig
		noAttachments bool
		noCommit      bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the whole library as JSON, attachments and a git commit",
		Long: `Backup pages through every top-level item and writes:

  meta/backup_meta.json             run manifest (fetched_at, item_count)
  items/<key>.json                  raw item records
  attachments/<key>/<key>.json      attachment records, plus the file
  annotations/<attachmentKey>.json  annotations under each attachment

The output directory is then committed to a local git repository, created
on first use. Requests are paced by --sleep. A rate-limit response aborts
the run; other per-attachment failures are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.IncludeAttachments = !noAttachments
			cfg.Commit = !noCommit
			if err := cfg.Validate(); err != nil {
				return configError(err)
			}
			// Credential problems exit 2 before any request is made.
			client, err := a.newClient(httputil.ConstantDelay(cfg.Sleep))
			if err != nil {
				return configError(err)
			}

			p := printer(cmd)
			rep, err := backup.Run(cmd.Context(), client, cfg, p)
			if err != nil {
				return err
			}
			p.Summary("Backup:", "%d items, %d attachments (%d saved, %d skipped), %d annotation files, %d child failures",
				rep.Items, rep.Attachments, rep.Saved, rep.DownloadSkipped, rep.AnnotationFiles, rep.ChildFailures)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "o", "", "backup directory (required)")
	cmd.Flags().BoolVar(&noAttachments, "no-attachments", false, "do not download attachment files")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "do not initialize or commit a git repository")
	cmd.Flags().Var(newSecondsValue(&cfg.Sleep, 500*time.Millisecond), "sleep", "delay after each paginated or children request, in seconds or as a duration")
	cmd.Flags().IntVar(&cfg.PerPage, "per-page", 100, "items per page when listing the library")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}
