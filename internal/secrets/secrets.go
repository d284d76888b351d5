// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads Zotero credentials from a directory of plain-text
// files. Each file is one secret: the filename is the key name and the
// trimmed contents are the value.
//
// Recognized files: zotero-api-key, zotero-library-id, zotero-library-type.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/zotero-export/pkg/types"
)

// Secret file names.
const (
	APIKey      = "zotero-api-key"
	LibraryID   = "zotero-library-id"
	LibraryType = "zotero-library-type"
)

// Store maps secret names to values.
type Store map[string]string

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty Store. Unreadable files are logged and skipped.
func Load(dir string) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Store)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Names returns the loaded secret names in sorted order. Values are never
// exposed by this method so it is safe to print.
func (s Store) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FillLibrary sets any empty credential field of cfg from the store.
// Values already present (from the environment or a config file) win.
func (s Store) FillLibrary(cfg *types.LibraryConfig) {
	if cfg.APIKey == "" {
		cfg.APIKey = s[APIKey]
	}
	if cfg.LibraryID == "" {
		cfg.LibraryID = s[LibraryID]
	}
	if cfg.LibraryType == "" {
		cfg.LibraryType = s[LibraryType]
	}
}
