// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/pdiddy/zotero-export/internal/git"
)

// CommitStatus is the outcome of the git snapshot step.
type CommitStatus string

const (
	CommitDisabled CommitStatus = ""
	Committed      CommitStatus = "committed"
	CommitNothing  CommitStatus = "nothing to commit"
	CommitFailed   CommitStatus = "failed"
)

const (
	gitignoreName = ".gitignore"
	defaultIgnore = "# zotero-export: local catalog and in-flight downloads\nindex/\n.download-*\n"
)

// Snapshot commits the current state of dir. It initializes a repository
// when dir is not already the top of one, writes a default .gitignore when
// none exists, stages everything, and commits with msg. When nothing but the
// run manifest changed the result is CommitNothing and the manifest stays
// staged for the next commit. Failures are returned with CommitFailed and never abort the
// caller.
func Snapshot(ctx context.Context, dir, msg string) (CommitStatus, error) {
	g := git.NewClient(dir, nil)

	if !g.IsRepo(ctx) {
		if err := g.Init(ctx); err != nil {
			return CommitFailed, fmt.Errorf("initializing repository: %w", err)
		}
	}

	ignore := filepath.Join(dir, gitignoreName)
	if _, err := os.Stat(ignore); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(ignore, []byte(defaultIgnore), 0o644); err != nil {
			return CommitFailed, fmt.Errorf("writing %s: %w", gitignoreName, err)
		}
	}

	if err := g.Add(ctx, "."); err != nil {
		return CommitFailed, err
	}
	changed, err := g.HasStagedChanges(ctx, path.Join(MetaDir, MetaFile))
	if err != nil {
		return CommitFailed, err
	}
	if !changed {
		return CommitNothing, nil
	}
	if err := g.Commit(ctx, msg); err != nil {
		return CommitFailed, err
	}
	return Committed, nil
}
