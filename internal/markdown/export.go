// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/internal/walk"
	"github.com/pdiddy/zotero-export/pkg/types"
)

// Export writes one Markdown file per annotated item into cfg.OutputDir,
// overwriting files from earlier runs. Items without annotations get a skip
// notice and no file.
func Export(ctx context.Context, src walk.Source, cfg types.ExportConfig, p *progress.Printer) (walk.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return walk.Summary{}, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return walk.Summary{}, fmt.Errorf("creating output directory: %w", err)
	}

	return walk.ForEachAnnotatedItem(ctx, src, cfg.Limit, func(it types.Item, groups []walk.Group) error {
		name := Filename(it)
		path := filepath.Join(cfg.OutputDir, name)
		if err := os.WriteFile(path, []byte(Render(it, groups)), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		p.Wrote("%s", name)
		return nil
	}, p)
}
