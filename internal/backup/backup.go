// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backup mirrors a whole library into a directory of raw JSON
// snapshots, optional attachment files, and per-attachment annotation lists,
// then records the result as a git commit.
//
// Layout:
//
//	meta/backup_meta.json
//	items/<key>.json
//	attachments/<key>/<key>.json
//	attachments/<key>/<filename>
//	annotations/<attachmentKey>.json
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/zotero-export/internal/httputil"
	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/pkg/types"
)

// Subdirectories of the backup root.
const (
	ItemsDir       = "items"
	AttachmentsDir = "attachments"
	AnnotationsDir = "annotations"
	MetaDir        = "meta"

	MetaFile = "backup_meta.json"
)

// timestampLayout formats the manifest time and commit message.
const timestampLayout = "2006-01-02T15:04:05Z"

// Client is the subset of the API client a backup needs.
type Client interface {
	AllTopItems(ctx context.Context, perPage int) ([]types.Item, error)
	Children(ctx context.Context, key string) ([]types.Item, error)
	FileURL(key string) string
	Open(ctx context.Context, href string) (io.ReadCloser, error)
}

// Meta is the run manifest written to meta/backup_meta.json.
type Meta struct {
	FetchedAt string `json:"fetched_at"`
	ItemCount int    `json:"item_count"`
}

// Report holds the outcome of a backup run.
type Report struct {
	Items           int
	Attachments     int
	Saved           int
	DownloadSkipped int
	AnnotationFiles int
	ChildFailures   int
	Commit          CommitStatus
	CommitErr       error
}

// HasFailures reports whether any per-resource step failed.
func (r Report) HasFailures() bool {
	return r.DownloadSkipped > 0 || r.ChildFailures > 0 || r.Commit == CommitFailed
}

// Run performs a full backup of the library behind c into cfg.OutputDir.
// Per-attachment download and annotation failures are reported on p and
// counted; a rate-limit response or a failure to list items aborts the run.
func Run(ctx context.Context, c Client, cfg types.BackupConfig, p *progress.Printer) (Report, error) {
	var rep Report
	if err := cfg.Validate(); err != nil {
		return rep, err
	}
	now := cfg.Clock()

	for _, sub := range []string{ItemsDir, AttachmentsDir, AnnotationsDir, MetaDir} {
		if err := os.MkdirAll(filepath.Join(cfg.OutputDir, sub), 0o755); err != nil {
			return rep, fmt.Errorf("creating directory %s: %w", sub, err)
		}
	}

	p.Info("Starting backup into %s", cfg.OutputDir)
	items, err := c.AllTopItems(ctx, cfg.PerPage)
	if err != nil {
		return rep, fmt.Errorf("listing items: %w", err)
	}
	p.Info("Fetched %d items", len(items))

	meta := Meta{FetchedAt: now().UTC().Format(timestampLayout), ItemCount: len(items)}
	if err := writeJSON(filepath.Join(cfg.OutputDir, MetaDir, MetaFile), meta); err != nil {
		return rep, err
	}

	resolvers := DefaultResolvers(c)
	for i, item := range items {
		p.Info("[%d/%d] %s %s", i+1, len(items), item.Key, item.Data.Title)
		if err := backupItem(ctx, c, resolvers, item, cfg, p, &rep); err != nil {
			return rep, err
		}
		rep.Items++
	}

	if cfg.Commit {
		rep.Commit, rep.CommitErr = Snapshot(ctx, cfg.OutputDir, "Zotero backup "+now().UTC().Format(timestampLayout))
		switch rep.Commit {
		case CommitFailed:
			p.Failed("git snapshot (%v)", rep.CommitErr)
		case CommitNothing:
			p.Skipped("git snapshot (nothing to commit)")
		default:
			p.Info("Committed backup to git")
		}
	}
	return rep, nil
}

func backupItem(ctx context.Context, c Client, resolvers []Resolver, item types.Item, cfg types.BackupConfig, p *progress.Printer, rep *Report) error {
	if err := writeItem(filepath.Join(cfg.OutputDir, ItemsDir, item.Key+".json"), item); err != nil {
		return err
	}

	children, err := c.Children(ctx, item.Key)
	if err != nil {
		return fmt.Errorf("fetching children of %s: %w", item.Key, err)
	}

	for _, child := range children {
		if !child.IsAttachment() {
			continue
		}
		rep.Attachments++

		attDir := filepath.Join(cfg.OutputDir, AttachmentsDir, child.Key)
		if err := os.MkdirAll(attDir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", child.Key, err)
		}
		if err := writeItem(filepath.Join(attDir, child.Key+".json"), child); err != nil {
			return err
		}

		if cfg.IncludeAttachments {
			path, err := Download(ctx, c, resolvers, child, attDir, AttachmentFilename(child))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.Failed("%s (download: %v)", child.Key, err)
				rep.DownloadSkipped++
			} else {
				p.Saved("%s", relPath(cfg.OutputDir, path))
				rep.Saved++
			}
		}

		anns, err := c.Children(ctx, child.Key)
		if err != nil {
			if errors.Is(err, httputil.ErrRateLimited) || ctx.Err() != nil {
				return fmt.Errorf("fetching children of %s: %w", child.Key, err)
			}
			p.Failed("%s (children: %v)", child.Key, err)
			rep.ChildFailures++
			continue
		}
		if len(anns) == 0 {
			continue
		}
		if err := writeItems(filepath.Join(cfg.OutputDir, AnnotationsDir, child.Key+".json"), anns); err != nil {
			return err
		}
		rep.AnnotationFiles++
		p.Info("  saved %d annotation(s) for %s", len(anns), child.Key)
	}
	return nil
}

func writeItem(path string, it types.Item) error {
	raw, err := it.Raw()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", it.Key, err)
	}
	return writeJSON(path, raw)
}

func writeItems(path string, items []types.Item) error {
	raws := make([]json.RawMessage, len(items))
	for i, it := range items {
		raw, err := it.Raw()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", it.Key, err)
		}
		raws[i] = raw
	}
	return writeJSON(path, raws)
}

// writeJSON writes v with two-space indentation, leaving HTML characters
// unescaped so snapshots match the API text.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
