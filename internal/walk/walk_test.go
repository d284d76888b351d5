// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package walk

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/pkg/types"
)

// fakeSource serves a fixed tree keyed by parent.
type fakeSource struct {
	top         []types.Item
	attachments map[string][]types.Item
	annotations map[string][]types.Item
	err         error
	gotLimit    int
}

func (f *fakeSource) TopItems(_ context.Context, limit int) ([]types.Item, error) {
	f.gotLimit = limit
	return f.top, nil
}

func (f *fakeSource) Attachments(_ context.Context, key string) ([]types.Item, error) {
	return f.attachments[key], nil
}

func (f *fakeSource) Annotations(_ context.Context, key string) ([]types.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.annotations[key], nil
}

func item(key, itemType string) types.Item {
	return types.Item{Key: key, Data: types.ItemData{Key: key, ItemType: itemType}}
}

func sampleSource() *fakeSource {
	return &fakeSource{
		top: []types.Item{item("I1", "book"), item("I2", "journalArticle"), item("I3", "book")},
		attachments: map[string][]types.Item{
			"I1": {item("A1", "attachment"), item("A2", "attachment"), item("A3", "attachment")},
			"I2": {item("A4", "attachment")},
		},
		annotations: map[string][]types.Item{
			"A1": {item("N1", "annotation"), item("N2", "annotation")},
			"A3": {item("N3", "annotation")},
		},
	}
}

func TestForEachAnnotatedItem(t *testing.T) {
	src := sampleSource()
	var buf bytes.Buffer

	type visit struct {
		key    string
		groups []Group
	}
	var visits []visit
	sum, err := ForEachAnnotatedItem(context.Background(), src, 7, func(it types.Item, groups []Group) error {
		visits = append(visits, visit{it.Key, groups})
		return nil
	}, progress.NewPrinter(&buf, false))
	require.NoError(t, err)

	assert.Equal(t, 7, src.gotLimit)
	assert.Equal(t, Summary{Visited: 1, Skipped: 2}, sum)
	assert.Equal(t, 3, sum.Total())

	require.Len(t, visits, 1)
	assert.Equal(t, "I1", visits[0].key)
	groups := visits[0].groups
	require.Len(t, groups, 2, "attachment without annotations is omitted")
	assert.Equal(t, "A1", groups[0].Attachment.Key)
	assert.Len(t, groups[0].Annotations, 2)
	assert.Equal(t, "A3", groups[1].Attachment.Key)

	assert.Equal(t,
		"skipped: I2 (no annotated attachments)\nskipped: I3 (no annotated attachments)\n",
		buf.String())
}

func TestForEachAnnotatedItem_SourceErrorAborts(t *testing.T) {
	src := sampleSource()
	src.err = errors.New("boom")

	called := false
	_, err := ForEachAnnotatedItem(context.Background(), src, 10, func(types.Item, []Group) error {
		called = true
		return nil
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)
	assert.Contains(t, err.Error(), "A1")
	assert.False(t, called)
}

func TestForEachAnnotatedItem_VisitErrorAborts(t *testing.T) {
	errDisk := errors.New("disk full")
	sum, err := ForEachAnnotatedItem(context.Background(), sampleSource(), 10, func(types.Item, []Group) error {
		return errDisk
	}, nil)
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, 0, sum.Visited)
}
