// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/zotero-export/pkg/types"
)

// chunkSize is the fixed buffer used to stream attachment bodies to disk.
const chunkSize = 8 << 10

// maxNameLen bounds the length of a saved attachment filename.
const maxNameLen = 150

// LinkRelations are the link names checked for a downloadable href, in order.
var LinkRelations = []string{"enclosure", "file", "link", "attachment"}

var unsafeName = regexp.MustCompile(`[^0-9A-Za-z\-_.]+`)

// ErrNoSource is returned when no resolver produced a downloadable href.
var ErrNoSource = errors.New("no downloadable source")

// Resolver turns an attachment into a candidate download href. It returns
// false when it has nothing to offer for this attachment.
type Resolver func(ctx context.Context, att types.Item) (href string, ok bool)

// NamedLinkResolver offers the first of LinkRelations that carries an href.
func NamedLinkResolver(_ context.Context, att types.Item) (string, bool) {
	for _, rel := range LinkRelations {
		if href := att.Links.Href(rel); href != "" {
			return href, true
		}
	}
	return "", false
}

// FileEndpointResolver offers the generic per-attachment file endpoint.
func FileEndpointResolver(fileURL func(key string) string) Resolver {
	return func(_ context.Context, att types.Item) (string, bool) {
		if att.Key == "" {
			return "", false
		}
		return fileURL(att.Key), true
	}
}

// DefaultResolvers returns the resolver chain used by Run: named links first,
// then the file endpoint.
func DefaultResolvers(c Client) []Resolver {
	return []Resolver{NamedLinkResolver, FileEndpointResolver(c.FileURL)}
}

// Opener streams the body behind an href.
type Opener interface {
	Open(ctx context.Context, href string) (io.ReadCloser, error)
}

// Download tries each resolver in turn and saves the first body served with
// a success status into dir. The file is written to a temporary name and
// renamed to name, or to the attachment key when name is empty or cannot be
// created. A failed attempt leaves no file behind. It returns the final path.
func Download(ctx context.Context, o Opener, resolvers []Resolver, att types.Item, dir, name string) (string, error) {
	var errs []error
	for _, resolve := range resolvers {
		href, ok := resolve(ctx, att)
		if !ok {
			continue
		}
		tmpPath, err := fetchToTemp(ctx, o, href, dir)
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return place(tmpPath, dir, name, att.Key)
	}
	if len(errs) == 0 {
		return "", ErrNoSource
	}
	return "", errors.Join(errs...)
}

// fetchToTemp streams href into a fresh temporary file in dir.
func fetchToTemp(ctx context.Context, o Opener, href, dir string) (string, error) {
	body, err := o.Open(ctx, href)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmpFile, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Hide ReadFrom/WriteTo so the copy goes through the fixed buffer.
	buf := make([]byte, chunkSize)
	_, copyErr := io.CopyBuffer(struct{ io.Writer }{tmpFile}, struct{ io.Reader }{body}, buf)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	return tmpPath, nil
}

// place renames tmpPath to name inside dir, falling back to key.
func place(tmpPath, dir, name, key string) (string, error) {
	var renameErr error
	for _, candidate := range []string{name, key} {
		if candidate == "" {
			continue
		}
		dest := filepath.Join(dir, candidate)
		if renameErr = os.Rename(tmpPath, dest); renameErr == nil {
			return dest, nil
		}
	}
	os.Remove(tmpPath)
	if renameErr == nil {
		renameErr = errors.New("no destination name")
	}
	return "", fmt.Errorf("renaming temp file: %w", renameErr)
}

// AttachmentFilename returns the local name for an attachment file, taken
// from its filename or title with unsafe characters replaced by "_". It
// returns "" when nothing usable remains, so the caller falls back to the key.
func AttachmentFilename(att types.Item) string {
	raw := att.Data.Filename
	if strings.TrimSpace(raw) == "" {
		raw = att.Data.Title
	}
	name := strings.Trim(unsafeName.ReplaceAllString(raw, "_"), "_")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	switch name {
	case ".", "..", att.Key + ".json":
		return ""
	}
	return name
}
