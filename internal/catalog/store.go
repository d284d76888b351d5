// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes a backup directory into a local SQLite database
// so annotations can be searched and exported without the network.
// The database lives at <backup>/index/catalog.db and is rebuilt
// incrementally: files whose content is unchanged since the last run are
// skipped.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/zotero-export/internal/backup"
	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/pkg/types"
)

const (
	indexDir          = "index"
	dbFile            = "catalog.db"
	defaultMaxResults = 20
)

// Store manages the catalog database of one backup directory.
type Store struct {
	db         *sql.DB
	backupDir  string
	maxResults int
}

// NewStore opens or creates the catalog at cfg.BackupDir/index/catalog.db
// and creates the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dbDir := filepath.Join(cfg.BackupDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	s := &Store{db: db, backupDir: cfg.BackupDir, maxResults: maxResults}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			key TEXT PRIMARY KEY,
			version INTEGER,
			item_type TEXT,
			title TEXT,
			date TEXT,
			authors TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			key TEXT PRIMARY KEY,
			parent_key TEXT,
			title TEXT,
			filename TEXT,
			content_type TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			key TEXT PRIMARY KEY,
			attachment_key TEXT NOT NULL,
			annotation_type TEXT,
			page_label TEXT,
			text TEXT,
			comment TEXT,
			color TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_parent ON attachments(parent_key)`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_attachment ON annotations(attachment_key)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			path TEXT PRIMARY KEY,
			content_hash TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from a catalog indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of files examined.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// sourceKind identifies which backup file family a path belongs to.
type sourceKind int

const (
	kindItem sourceKind = iota
	kindAttachment
	kindAnnotations
)

type sourceFile struct {
	kind sourceKind
	rel  string
}

// Ingest indexes item, attachment, and annotation snapshots from the backup
// directory. New and changed files are (re)indexed; unchanged files are
// skipped. A file that cannot be read or parsed is reported on p and
// counted, and the run continues. When anything changed, export.yaml is
// rewritten.
func (s *Store) Ingest(ctx context.Context, p *progress.Printer) (IngestSummary, error) {
	files, err := s.sourceFiles()
	if err != nil {
		return IngestSummary{}, err
	}

	var summary IngestSummary
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		data, err := os.ReadFile(filepath.Join(s.backupDir, f.rel))
		if err != nil {
			p.Failed("%s (%v)", f.rel, err)
			summary.Failed++
			continue
		}
		hash := contentHash(data)

		var stored string
		err = s.db.QueryRowContext(ctx,
			`SELECT content_hash FROM indexing_status WHERE path = ?`, f.rel,
		).Scan(&stored)
		if err == nil && stored == hash {
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		if err := s.ingestFile(ctx, f, data, hash); err != nil {
			p.Failed("%s (%v)", f.rel, err)
			summary.Failed++
			continue
		}
		if isUpdate {
			p.Info("updated %s", f.rel)
			summary.Updated++
		} else {
			p.Info("indexed %s", f.rel)
			summary.Indexed++
		}
	}

	p.Summary("Catalog:", "indexed %d, updated %d, skipped %d, failed %d",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			p.Failed("export.yaml (%v)", err)
		}
	}
	return summary, nil
}

// sourceFiles lists backup files relative to the backup root: items first,
// then attachment metadata, then annotation lists.
func (s *Store) sourceFiles() ([]sourceFile, error) {
	itemsDir := filepath.Join(s.backupDir, backup.ItemsDir)
	if _, err := os.Stat(itemsDir); err != nil {
		return nil, fmt.Errorf("%s is not a backup directory: %w", s.backupDir, err)
	}

	var files []sourceFile
	add := func(kind sourceKind, pattern string) error {
		matches, err := filepath.Glob(filepath.Join(s.backupDir, pattern))
		if err != nil {
			return err
		}
		for _, m := range matches {
			rel, err := filepath.Rel(s.backupDir, m)
			if err != nil {
				return err
			}
			if kind == kindAttachment && !isAttachmentMeta(rel) {
				continue
			}
			files = append(files, sourceFile{kind: kind, rel: filepath.ToSlash(rel)})
		}
		return nil
	}
	patterns := []struct {
		kind    sourceKind
		pattern string
	}{
		{kindItem, filepath.Join(backup.ItemsDir, "*.json")},
		{kindAttachment, filepath.Join(backup.AttachmentsDir, "*", "*.json")},
		{kindAnnotations, filepath.Join(backup.AnnotationsDir, "*.json")},
	}
	for _, pt := range patterns {
		if err := add(pt.kind, pt.pattern); err != nil {
			return nil, fmt.Errorf("listing %s: %w", pt.pattern, err)
		}
	}
	return files, nil
}

// isAttachmentMeta reports whether rel is attachments/<key>/<key>.json, as
// opposed to a downloaded file that happens to end in .json.
func isAttachmentMeta(rel string) bool {
	dir, file := filepath.Split(rel)
	return strings.TrimSuffix(file, ".json") == filepath.Base(dir)
}

// contentHash keys the skip check. A file rewritten with identical bytes is
// not a change.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) ingestFile(ctx context.Context, f sourceFile, data []byte, hash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	switch f.kind {
	case kindItem:
		err = ingestItem(ctx, tx, data)
	case kindAttachment:
		err = ingestAttachment(ctx, tx, data)
	case kindAnnotations:
		key := strings.TrimSuffix(filepath.Base(f.rel), ".json")
		err = ingestAnnotations(ctx, tx, key, data)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (path, content_hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash`,
		f.rel, hash,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}
	return tx.Commit()
}

func decodeItem(data []byte) (types.Item, error) {
	var it types.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return types.Item{}, fmt.Errorf("parse error: %w", err)
	}
	return it, nil
}

func ingestItem(ctx context.Context, tx *sql.Tx, data []byte) error {
	it, err := decodeItem(data)
	if err != nil {
		return err
	}
	authors := make([]string, 0, len(it.Data.Creators))
	for _, c := range it.Data.Creators {
		if name := c.FullName(); name != "" {
			authors = append(authors, name)
		}
	}
	authorsJSON, _ := json.Marshal(authors)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (key, version, item_type, title, date, authors)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			version=excluded.version, item_type=excluded.item_type, title=excluded.title,
			date=excluded.date, authors=excluded.authors`,
		it.Key, it.Version, it.Data.ItemType, it.Data.Title, it.Data.Date, string(authorsJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", it.Key, err)
	}
	return nil
}

func ingestAttachment(ctx context.Context, tx *sql.Tx, data []byte) error {
	it, err := decodeItem(data)
	if err != nil {
		return err
	}
	if !it.IsAttachment() {
		return fmt.Errorf("%s is a %q, not an attachment", it.Key, it.Data.ItemType)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO attachments (key, parent_key, title, filename, content_type)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			parent_key=excluded.parent_key, title=excluded.title,
			filename=excluded.filename, content_type=excluded.content_type`,
		it.Key, it.Data.ParentItem, it.Data.Title, it.Data.Filename, it.Data.ContentType,
	)
	if err != nil {
		return fmt.Errorf("upserting attachment %s: %w", it.Key, err)
	}
	return nil
}

// ingestAnnotations replaces every annotation row of one attachment.
func ingestAnnotations(ctx context.Context, tx *sql.Tx, attachmentKey string, data []byte) error {
	var children []types.Item
	if err := json.Unmarshal(data, &children); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM annotations WHERE attachment_key = ?`, attachmentKey,
	); err != nil {
		return fmt.Errorf("deleting old annotations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO annotations (key, attachment_key, annotation_type, page_label, text, comment, color)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, child := range children {
		// Attachment children may also include notes.
		if !child.IsAnnotation() {
			continue
		}
		d := child.Data
		if _, err := stmt.ExecContext(ctx,
			child.Key, attachmentKey, d.AnnotationType, d.AnnotationPageLabel,
			d.AnnotationText, d.AnnotationComment, d.AnnotationColor,
		); err != nil {
			return fmt.Errorf("inserting annotation %s: %w", child.Key, err)
		}
	}
	return nil
}
