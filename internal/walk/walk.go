// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package walk traverses the library tree (items, their attachments, and the
// annotations under each attachment) and hands annotated items to a visitor.
package walk

import (
	"context"
	"fmt"

	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/pkg/types"
)

// Source is the subset of the API client the walker reads from.
type Source interface {
	TopItems(ctx context.Context, limit int) ([]types.Item, error)
	Attachments(ctx context.Context, key string) ([]types.Item, error)
	Annotations(ctx context.Context, key string) ([]types.Item, error)
}

// Group pairs an attachment with its annotations.
type Group struct {
	Attachment  types.Item
	Annotations []types.Item
}

// VisitFunc receives an item together with its annotated attachments, in
// API order. It is only called when groups is non-empty.
type VisitFunc func(item types.Item, groups []Group) error

// Summary counts the outcome of a walk.
type Summary struct {
	Visited int
	Skipped int
}

// Total returns the number of top-level items examined.
func (s Summary) Total() int {
	return s.Visited + s.Skipped
}

// ForEachAnnotatedItem fetches up to limit top-level items and calls visit
// for each one that has at least one attachment with annotations. Items
// without any produce a skip notice on p. An error from src or visit stops
// the walk and is returned with the summary so far.
func ForEachAnnotatedItem(ctx context.Context, src Source, limit int, visit VisitFunc, p *progress.Printer) (Summary, error) {
	var sum Summary

	items, err := src.TopItems(ctx, limit)
	if err != nil {
		return sum, fmt.Errorf("fetching top items: %w", err)
	}

	for _, item := range items {
		groups, err := Groups(ctx, src, item.Key)
		if err != nil {
			return sum, err
		}
		if len(groups) == 0 {
			p.Skipped("%s (no annotated attachments)", item.Key)
			sum.Skipped++
			continue
		}
		if err := visit(item, groups); err != nil {
			return sum, fmt.Errorf("visiting %s: %w", item.Key, err)
		}
		sum.Visited++
	}
	return sum, nil
}

// Groups returns the annotated attachments of the item with the given key.
// Attachments without annotations are omitted.
func Groups(ctx context.Context, src Source, key string) ([]Group, error) {
	attachments, err := src.Attachments(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetching attachments of %s: %w", key, err)
	}

	var groups []Group
	for _, att := range attachments {
		anns, err := src.Annotations(ctx, att.Key)
		if err != nil {
			return nil, fmt.Errorf("fetching annotations of %s: %w", att.Key, err)
		}
		if len(anns) == 0 {
			continue
		}
		groups = append(groups, Group{Attachment: att, Annotations: anns})
	}
	return groups, nil
}
