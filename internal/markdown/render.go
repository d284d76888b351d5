// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown renders annotated library items as Markdown notes, one
// file per item, named by sanitized title and item key.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/zotero-export/internal/walk"
	"github.com/pdiddy/zotero-export/pkg/types"
)

const (
	maxTitleRunes = 100

	// maxNameBytes is the usual filesystem limit on one path component.
	maxNameBytes = 255

	defaultTitle    = "Untitled"
	defaultItemType = "document"
	defaultAttTitle = "Attachment"
)

var (
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
	illegalName = regexp.MustCompile(`[\\/*?:"<>|]`)
)

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at either end.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// AuthorTag returns the tag for an author or editor, built from the first
// given-name token and the last name: "Jane Q. Doe" becomes "#jane-doe".
// Other roles, and creators without a last name, have no tag.
func AuthorTag(c types.Creator) (string, bool) {
	if c.CreatorType != "author" && c.CreatorType != "editor" {
		return "", false
	}
	last := strings.TrimSpace(c.LastName)
	if last == "" {
		return "", false
	}
	first := ""
	if fields := strings.Fields(c.FirstName); len(fields) > 0 {
		first = fields[0]
	}
	slug := Slugify(first + "-" + last)
	if slug == "" {
		return "", false
	}
	return "#" + slug, true
}

// Filename returns "<sanitized title>_<key>.md". Characters illegal on
// common filesystems become "_" and the title is cut to 100 characters, and
// further at a character boundary so the whole name fits in 255 bytes.
func Filename(it types.Item) string {
	suffix := "_" + it.Key + ".md"
	safe := illegalName.ReplaceAllString(strings.TrimSpace(it.Data.Title), "_")
	safe = truncateName(safe, maxTitleRunes, maxNameBytes-len(suffix))
	if safe == "" {
		safe = "untitled"
	}
	return safe + suffix
}

func truncateName(s string, maxRunes, maxBytes int) string {
	n := 0
	for i, r := range s {
		if n == maxRunes || i+utf8.RuneLen(r) > maxBytes {
			return s[:i]
		}
		n++
	}
	return s
}

// Render produces the Markdown note for an item and its annotated
// attachments. Output depends only on its inputs.
func Render(it types.Item, groups []walk.Group) string {
	d := it.Data
	title := orDefault(d.Title, defaultTitle)
	itemType := orDefault(d.ItemType, defaultItemType)

	lines := []string{"# " + title}
	if year := firstRunes(strings.TrimSpace(d.Date), 4); year != "" {
		lines = append(lines, "**Year:** "+year)
	}
	lines = append(lines, "", "**Item Type:** "+itemType)

	if len(d.Creators) > 0 {
		names := make([]string, len(d.Creators))
		for i, c := range d.Creators {
			names[i] = c.FullName()
		}
		lines = append(lines, "**Authors:** "+strings.Join(names, ", "))
	}

	var tags []string
	for _, c := range d.Creators {
		if tag, ok := AuthorTag(c); ok {
			tags = append(tags, tag)
		}
	}
	tags = append(tags, "#"+Slugify(itemType))
	lines = append(lines, "", "**Tags:** "+strings.Join(tags, " "), "", "---", "")

	for _, g := range groups {
		lines = append(lines, "## "+orDefault(g.Attachment.Data.Title, defaultAttTitle))
		for n, ann := range g.Annotations {
			a := ann.Data
			lines = append(lines,
				"",
				fmt.Sprintf("### Annotation %d", n),
				fmt.Sprintf("**p%s, type: %s**", a.AnnotationPageLabel, a.AnnotationType),
				a.AnnotationText,
			)
			if a.AnnotationComment != "" {
				lines = append(lines, "  > Comment: "+a.AnnotationComment)
			}
			if a.AnnotationColor != "" {
				lines = append(lines, "  > _(Color: "+a.AnnotationColor+")_")
			}
			lines = append(lines, "")
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func firstRunes(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
