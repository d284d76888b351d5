// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate skips without git and hides the user's global configuration so
// the fallback identity path is exercised.
func isolate(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
}

func TestInitAndIsRepo(t *testing.T) {
	isolate(t)
	ctx := context.Background()
	dir := t.TempDir()
	c := NewClient(dir, nil)

	assert.False(t, c.IsRepo(ctx))
	require.NoError(t, c.Init(ctx))
	assert.DirExists(t, filepath.Join(dir, ".git"))
	assert.True(t, c.IsRepo(ctx))
}

func TestIsRepo_NestedDirectoryIsNotRepo(t *testing.T) {
	isolate(t)
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, NewClient(root, nil).Init(ctx))

	sub := filepath.Join(root, "backup")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.False(t, NewClient(sub, nil).IsRepo(ctx))
}

func TestCommitCycle(t *testing.T) {
	isolate(t)
	ctx := context.Background()
	dir := t.TempDir()
	c := NewClient(dir, nil)
	require.NoError(t, c.Init(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}\n"), 0o644))
	changed, err := c.HasChanges(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, c.Add(ctx, "."))
	require.NoError(t, c.Commit(ctx, "first"))

	changed, err = c.HasChanges(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	author, err := c.Run(ctx, "log", "-1", "--format=%an <%ae>")
	require.NoError(t, err)
	assert.Equal(t, FallbackName+" <"+FallbackEmail+">", author)

	assert.Error(t, c.Commit(ctx, "empty"), "nothing to commit fails")
}

func TestAddNothing(t *testing.T) {
	c := NewClient(t.TempDir(), nil)
	assert.NoError(t, c.Add(context.Background()))
}

func TestHasStagedChanges_Exclude(t *testing.T) {
	isolate(t)
	ctx := context.Background()
	dir := t.TempDir()
	c := NewClient(dir, nil)
	require.NoError(t, c.Init(ctx))

	write := func(name, body string) {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write("meta/run.json", `{"at":1}`)
	write("data.json", "{}")
	require.NoError(t, c.Add(ctx, "."))

	changed, err := c.HasStagedChanges(ctx, "meta/run.json")
	require.NoError(t, err)
	assert.True(t, changed, "unborn HEAD counts every staged file")
	require.NoError(t, c.Commit(ctx, "first"))

	write("meta/run.json", `{"at":2}`)
	require.NoError(t, c.Add(ctx, "."))
	changed, err = c.HasStagedChanges(ctx, "meta/run.json")
	require.NoError(t, err)
	assert.False(t, changed, "excluded path alone is not a change")

	changed, err = c.HasStagedChanges(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	write("data.json", `{"v":2}`)
	require.NoError(t, c.Add(ctx, "."))
	changed, err = c.HasStagedChanges(ctx, "meta/run.json")
	require.NoError(t, err)
	assert.True(t, changed)
}
