// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyQuery is returned when a search has no term and no filter.
var ErrEmptyQuery = errors.New("search needs a query, an item key, or a type")

// QueryOptions holds parameters for catalog searches.
type QueryOptions struct {
	// Query is a case-insensitive substring matched against annotation
	// text and comment.
	Query string

	// ItemKey restricts results to annotations under one top-level item.
	ItemKey string

	// Type filters by annotation type (highlight, note, image, ink, ...).
	Type string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search term or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.ItemKey == "" && q.Type == ""
}

// Result is one annotation with the attachment and item it belongs to.
type Result struct {
	Key           string   `json:"key" yaml:"key"`
	Type          string   `json:"type" yaml:"type"`
	PageLabel     string   `json:"page_label,omitempty" yaml:"page_label,omitempty"`
	Text          string   `json:"text,omitempty" yaml:"text,omitempty"`
	Comment       string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	Color         string   `json:"color,omitempty" yaml:"color,omitempty"`
	AttachmentKey string   `json:"attachment_key" yaml:"attachment_key"`
	ItemKey       string   `json:"item_key,omitempty" yaml:"item_key,omitempty"`
	ItemTitle     string   `json:"item_title,omitempty" yaml:"item_title,omitempty"`
	ItemDate      string   `json:"item_date,omitempty" yaml:"item_date,omitempty"`
	ItemAuthors   []string `json:"item_authors,omitempty" yaml:"item_authors,omitempty"`
}

// Search returns annotations matching opts, ordered by item, attachment,
// page label and key so output is stable across runs.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT a.key, a.annotation_type, a.page_label, a.text, a.comment, a.color,
			a.attachment_key, COALESCE(t.parent_key, ''),
			COALESCE(i.title, ''), COALESCE(i.date, ''), COALESCE(i.authors, '')
		FROM annotations a
		LEFT JOIN attachments t ON t.key = a.attachment_key
		LEFT JOIN items i ON i.key = t.parent_key
		WHERE 1=1`)

	if opts.Query != "" {
		like := "%" + escapeLike(opts.Query) + "%"
		qb.WriteString(` AND (a.text LIKE ? ESCAPE '\' OR a.comment LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if opts.ItemKey != "" {
		qb.WriteString(` AND t.parent_key = ?`)
		args = append(args, opts.ItemKey)
	}
	if opts.Type != "" {
		qb.WriteString(` AND a.annotation_type = ?`)
		args = append(args, opts.Type)
	}

	qb.WriteString(` ORDER BY t.parent_key, a.attachment_key, a.page_label, a.key LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r           Result
			authorsJSON string
		)
		if err := rows.Scan(
			&r.Key, &r.Type, &r.PageLabel, &r.Text, &r.Comment, &r.Color,
			&r.AttachmentKey, &r.ItemKey, &r.ItemTitle, &r.ItemDate, &authorsJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if authorsJSON != "" {
			json.Unmarshal([]byte(authorsJSON), &r.ItemAuthors)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeLike escapes the LIKE wildcards in a user query.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
