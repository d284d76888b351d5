// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes matching annotations to index/export.yaml and returns
// the path. It supports the same filters as Search.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	results, err := s.exportResults(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport("export.yaml", data)
}

// ExportJSON writes matching annotations to index/export.json and returns
// the path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	results, err := s.exportResults(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport("export.json", data)
}

func (s *Store) exportResults(ctx context.Context, opts QueryOptions) ([]Result, error) {
	opts.MaxResults = exportLimit
	results, err := s.Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.backupDir, indexDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}
