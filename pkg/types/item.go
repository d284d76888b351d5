// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"errors"
	"strings"
)

// Item types this tool distinguishes. Every other type is a regular
// bibliographic item (journalArticle, book, ...).
const (
	ItemTypeAttachment = "attachment"
	ItemTypeAnnotation = "annotation"
	ItemTypeNote       = "note"
)

// ErrMalformedItem is returned when an API record lacks its key.
var ErrMalformedItem = errors.New("malformed item: missing key")

// Item is one record from the Zotero Web API: a top-level item, an
// attachment, a note, or an annotation. The decoded fields are the ones this
// tool reads; the exact response bytes are retained so that backups mirror
// fields it does not model.
type Item struct {
	// Key is unique within the library and names every local file for the item.
	Key string `json:"key"`

	// Version is the library version at which the item last changed.
	Version int `json:"version"`

	// Links maps relation names (self, alternate, up, enclosure) to hrefs.
	Links Links `json:"links,omitempty"`

	// Data is the editable payload.
	Data ItemData `json:"data"`

	raw json.RawMessage
}

// UnmarshalJSON decodes an API record and keeps a copy of its bytes.
func (it *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Key == "" {
		p.Key = p.Data.Key
	}
	if p.Key == "" {
		return ErrMalformedItem
	}
	*it = Item(p)
	it.raw = append(json.RawMessage(nil), b...)
	return nil
}

// Raw returns the record exactly as received, or its encoding when the item
// was built locally.
func (it Item) Raw() (json.RawMessage, error) {
	if len(it.raw) > 0 {
		return it.raw, nil
	}
	type plain Item
	return json.Marshal(plain(it))
}

// Type returns the lowercased item type.
func (it Item) Type() string {
	return strings.ToLower(it.Data.ItemType)
}

// IsAttachment reports whether the item is a file attachment.
func (it Item) IsAttachment() bool { return it.Type() == ItemTypeAttachment }

// IsAnnotation reports whether the item is a PDF/EPUB annotation.
func (it Item) IsAnnotation() bool { return it.Type() == ItemTypeAnnotation }

// ItemData holds the fields of the data payload. Fields absent from a given
// item type decode to their zero value.
type ItemData struct {
	Key          string    `json:"key,omitempty"`
	ItemType     string    `json:"itemType"`
	Title        string    `json:"title,omitempty"`
	Date         string    `json:"date,omitempty"`
	Creators     []Creator `json:"creators,omitempty"`
	ParentItem   string    `json:"parentItem,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
	DateAdded    string    `json:"dateAdded,omitempty"`
	DateModified string    `json:"dateModified,omitempty"`

	// Attachment fields.
	LinkMode    string `json:"linkMode,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MD5         string `json:"md5,omitempty"`
	URL         string `json:"url,omitempty"`

	// Note body (HTML) for notes.
	Note string `json:"note,omitempty"`

	// Annotation fields.
	AnnotationType      string `json:"annotationType,omitempty"`
	AnnotationText      string `json:"annotationText,omitempty"`
	AnnotationComment   string `json:"annotationComment,omitempty"`
	AnnotationColor     string `json:"annotationColor,omitempty"`
	AnnotationPageLabel string `json:"annotationPageLabel,omitempty"`
}

// Creator is one entry of an item's creator list. Two-field names use
// FirstName/LastName; single-field names (institutions) use Name.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// FullName returns "First Last", or Name for single-field creators.
func (c Creator) FullName() string {
	if c.Name != "" {
		return strings.TrimSpace(c.Name)
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Tag is a library tag attached to an item.
type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// Link is a related resource reference.
type Link struct {
	Href   string `json:"href"`
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Length int64  `json:"length,omitempty"`
}

// Links maps link relation names to links.
type Links map[string]Link

// Href returns the href of the named relation, or "" when absent.
func (l Links) Href(rel string) string {
	return strings.TrimSpace(l[rel].Href)
}
