// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/pkg/types"
)

// --- test helpers ---

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// sampleBackup lays out a backup with two items, one attachment, and two
// annotations plus a note under that attachment.
func sampleBackup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "items/ITEM1.json", `{"key":"ITEM1","version":3,"data":{"itemType":"journalArticle","title":"Attention Is All You Need","date":"2017-06-12",
		"creators":[{"creatorType":"author","firstName":"Ashish","lastName":"Vaswani"}]}}`)
	writeFile(t, dir, "items/ITEM2.json", `{"key":"ITEM2","version":4,"data":{"itemType":"book","title":"Dune"}}`)
	writeFile(t, dir, "attachments/ATT1/ATT1.json", `{"key":"ATT1","data":{"itemType":"attachment","parentItem":"ITEM1","title":"Full Text PDF","filename":"paper.pdf"}}`)
	writeFile(t, dir, "attachments/ATT1/sidecar.json", `not an attachment record`)
	writeFile(t, dir, "annotations/ATT1.json", `[
		{"key":"N1","data":{"itemType":"annotation","parentItem":"ATT1","annotationType":"highlight","annotationPageLabel":"3","annotationText":"Self-attention is all you need","annotationColor":"#ffd400"}},
		{"key":"N2","data":{"itemType":"annotation","parentItem":"ATT1","annotationType":"note","annotationPageLabel":"5","annotationComment":"100% worth rereading"}},
		{"key":"NOTE1","data":{"itemType":"note","parentItem":"ATT1","note":"<p>child note</p>"}}
	]`)
	return dir
}

func testStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := NewStore(types.CatalogConfig{BackupDir: dir, MaxResults: 20})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func ingest(t *testing.T, store *Store) (IngestSummary, string) {
	t.Helper()
	var buf bytes.Buffer
	summary, err := store.Ingest(context.Background(), progress.NewPrinter(&buf, false))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return summary, buf.String()
}

// --- tests ---

func TestNewStoreCreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	testStore(t, dir)
	if _, err := os.Stat(filepath.Join(dir, "index", "catalog.db")); err != nil {
		t.Errorf("catalog.db not created: %v", err)
	}
}

func TestNewStoreRequiresBackupDir(t *testing.T) {
	if _, err := NewStore(types.CatalogConfig{}); err != types.ErrMissingBackupDir {
		t.Errorf("got %v, want ErrMissingBackupDir", err)
	}
}

func TestIngest(t *testing.T) {
	store := testStore(t, sampleBackup(t))
	summary, out := ingest(t, store)

	want := IngestSummary{Indexed: 4}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if summary.Total() != 4 {
		t.Errorf("Total() = %d, want 4", summary.Total())
	}
	if !strings.Contains(out, "indexed annotations/ATT1.json") {
		t.Errorf("output missing indexed line:\n%s", out)
	}
	if strings.Contains(out, "sidecar.json") {
		t.Errorf("downloaded files must not be indexed:\n%s", out)
	}
}

func TestIngestSkipsUnchanged(t *testing.T) {
	store := testStore(t, sampleBackup(t))
	ingest(t, store)

	summary, _ := ingest(t, store)
	want := IngestSummary{Skipped: 4}
	if summary != want {
		t.Errorf("second ingest = %+v, want %+v", summary, want)
	}
}

func TestIngestSkipsRewrittenWithSameContent(t *testing.T) {
	dir := sampleBackup(t)
	store := testStore(t, dir)
	ingest(t, store)

	// A later backup rewrites every file with the same bytes.
	later := time.Now().Add(time.Hour)
	for _, rel := range []string{"items/ITEM1.json", "items/ITEM2.json", "attachments/ATT1/ATT1.json", "annotations/ATT1.json"} {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, later, later); err != nil {
			t.Fatal(err)
		}
	}

	summary, _ := ingest(t, store)
	want := IngestSummary{Skipped: 4}
	if summary != want {
		t.Errorf("ingest after rewrite = %+v, want %+v", summary, want)
	}
}

func TestIngestUpdatesChanged(t *testing.T) {
	dir := sampleBackup(t)
	store := testStore(t, dir)
	ingest(t, store)

	writeFile(t, dir, "annotations/ATT1.json",
		`[{"key":"N3","data":{"itemType":"annotation","annotationType":"highlight","annotationText":"Replaced text"}}]`)

	summary, _ := ingest(t, store)
	if summary.Updated != 1 || summary.Skipped != 3 {
		t.Errorf("summary = %+v, want 1 updated and 3 skipped", summary)
	}

	results, err := store.Search(context.Background(), QueryOptions{ItemKey: "ITEM1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Key != "N3" {
		t.Errorf("results = %+v, want only N3", results)
	}
}

func TestIngestReportsBadFile(t *testing.T) {
	dir := sampleBackup(t)
	writeFile(t, dir, "items/BAD.json", `{not json`)
	store := testStore(t, dir)

	summary, out := ingest(t, store)
	if summary.Failed != 1 || summary.Indexed != 4 {
		t.Errorf("summary = %+v, want 4 indexed and 1 failed", summary)
	}
	if !strings.Contains(out, "failed: items/BAD.json") {
		t.Errorf("output missing failure line:\n%s", out)
	}
}

func TestIngestNotBackupDir(t *testing.T) {
	store := testStore(t, t.TempDir())
	if _, err := store.Ingest(context.Background(), nil); err == nil {
		t.Error("expected error for directory without items/")
	}
}

func TestIngestWritesExportYAML(t *testing.T) {
	dir := sampleBackup(t)
	ingest(t, testStore(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "index", "export.yaml"))
	if err != nil {
		t.Fatalf("export.yaml not written: %v", err)
	}
	var results []Result
	if err := yaml.Unmarshal(data, &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("exported %d annotations, want 2", len(results))
	}
}

func TestSearch(t *testing.T) {
	store := testStore(t, sampleBackup(t))
	ingest(t, store)
	ctx := context.Background()

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"case-insensitive text match", QueryOptions{Query: "SELF-ATTENTION"}, []string{"N1"}},
		{"comment match with literal percent", QueryOptions{Query: "100%"}, []string{"N2"}},
		{"percent is not a wildcard", QueryOptions{Query: "%rereading"}, nil},
		{"by type", QueryOptions{Type: "note"}, []string{"N2"}},
		{"by item", QueryOptions{ItemKey: "ITEM1"}, []string{"N1", "N2"}},
		{"other item", QueryOptions{ItemKey: "ITEM2"}, nil},
		{"max results", QueryOptions{ItemKey: "ITEM1", MaxResults: 1}, []string{"N1"}},
		{"no match", QueryOptions{Query: "transformer"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, r := range results {
				got = append(got, r.Key)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("keys = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchIncludesItemMetadata(t *testing.T) {
	store := testStore(t, sampleBackup(t))
	ingest(t, store)

	results, err := store.Search(context.Background(), QueryOptions{Query: "attention"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ItemKey != "ITEM1" || r.ItemTitle != "Attention Is All You Need" || r.ItemDate != "2017-06-12" {
		t.Errorf("item metadata = %q %q %q", r.ItemKey, r.ItemTitle, r.ItemDate)
	}
	if len(r.ItemAuthors) != 1 || r.ItemAuthors[0] != "Ashish Vaswani" {
		t.Errorf("authors = %v", r.ItemAuthors)
	}
	if r.PageLabel != "3" || r.Color != "#ffd400" || r.AttachmentKey != "ATT1" {
		t.Errorf("annotation fields = %+v", r)
	}
}

func TestExportJSON(t *testing.T) {
	dir := sampleBackup(t)
	store := testStore(t, dir)
	ingest(t, store)

	path, err := store.ExportJSON(context.Background(), QueryOptions{Type: "highlight"})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "index", "export.json") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Key != "N1" {
		t.Errorf("exported = %+v, want only N1", results)
	}
}

func TestExportEmptyCatalog(t *testing.T) {
	store := testStore(t, t.TempDir())
	path, err := store.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty export = %q, want []", data)
	}
}

func TestIsAttachmentMeta(t *testing.T) {
	tests := map[string]bool{
		"attachments/ATT1/ATT1.json":    true,
		"attachments/ATT1/sidecar.json": false,
		"attachments/ATT1/ATT2.json":    false,
	}
	for rel, want := range tests {
		if got := isAttachmentMeta(filepath.FromSlash(rel)); got != want {
			t.Errorf("isAttachmentMeta(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestQueryOptionsIsEmpty(t *testing.T) {
	if !(QueryOptions{MaxResults: 5}).IsEmpty() {
		t.Error("MaxResults alone should be empty")
	}
	if (QueryOptions{Type: "note"}).IsEmpty() {
		t.Error("type filter is not empty")
	}
}
