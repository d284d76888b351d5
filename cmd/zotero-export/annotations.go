// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/zotero-export/internal/httputil"
	"github.com/pdiddy/zotero-export/internal/walk"
	"github.com/pdiddy/zotero-export/pkg/types"
)

func newAnnotationsCmd(a *app) *cobra.Command {
	var (
		limit   int
		itemKey string
	)

	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Print every annotation as a flat list",
		Long: `Annotations prints the annotations of up to --limit top-level items, one
block per annotation:

  [page] highlighted text
    Comment: comment, when present

With --item only the annotations of that item are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return types.ErrInvalidExportLimit
			}
			client, err := a.newClient(httputil.NoDelay)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if itemKey != "" {
				groups, err := walk.Groups(cmd.Context(), client, itemKey)
				if err != nil {
					return err
				}
				writeAnnotations(w, groups)
				return nil
			}

			_, err = walk.ForEachAnnotatedItem(cmd.Context(), client, limit, func(_ types.Item, groups []walk.Group) error {
				writeAnnotations(w, groups)
				return nil
			}, nil)
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of top-level items to fetch")
	cmd.Flags().StringVar(&itemKey, "item", "", "print only the annotations of this item key")
	return cmd
}

func writeAnnotations(w io.Writer, groups []walk.Group) {
	for _, g := range groups {
		for _, ann := range g.Annotations {
			d := ann.Data
			fmt.Fprintf(w, "[%s] %s\n", d.AnnotationPageLabel, d.AnnotationText)
			if d.AnnotationComment != "" {
				fmt.Fprintf(w, "  Comment: %s\n", d.AnnotationComment)
			}
			fmt.Fprintln(w)
		}
	}
}
