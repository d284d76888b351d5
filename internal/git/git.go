// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package git runs the git commands that snapshot a backup directory.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Identity used when the repository has no user configured.
const (
	FallbackName  = "zotero-export"
	FallbackEmail = "zotero-export@localhost"
)

// ErrNotInstalled is returned when no git binary is on PATH.
var ErrNotInstalled = errors.New("git executable not found")

// Client executes git in a fixed working directory.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{WorkDir: workDir, Logger: logger}
}

// Available reports whether git can be executed.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Run executes a raw git command in the working directory and returns its
// trimmed combined output.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if !Available() {
		return "", ErrNotInstalled
	}
	c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}
	return output, nil
}

// IsRepo reports whether WorkDir is the top level of a git work tree. A
// directory nested inside some other repository does not count.
func (c *Client) IsRepo(ctx context.Context) bool {
	top, err := c.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return false
	}
	return samePath(top, c.WorkDir)
}

// Init creates a repository in WorkDir.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// Add stages the given paths.
func (c *Client) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.Run(ctx, append([]string{"add"}, paths...)...)
	return err
}

// Status returns the porcelain status of the repo.
func (c *Client) Status(ctx context.Context) (string, error) {
	return c.Run(ctx, "status", "--porcelain")
}

// HasChanges reports whether the work tree or index differs from HEAD.
func (c *Client) HasChanges(ctx context.Context) (bool, error) {
	out, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// HasStagedChanges reports whether the index differs from HEAD, ignoring
// the excluded paths. On a repository without commits every staged path
// counts as a change.
func (c *Client) HasStagedChanges(ctx context.Context, exclude ...string) (bool, error) {
	args := []string{"diff", "--cached", "--quiet", "--", "."}
	for _, p := range exclude {
		args = append(args, ":(exclude)"+p)
	}
	_, err := c.Run(ctx, args...)
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// Commit records the staged changes. When no author identity is configured
// it commits as FallbackName so unattended runs still succeed.
func (c *Client) Commit(ctx context.Context, msg string) error {
	var args []string
	if !c.hasIdentity(ctx) {
		args = append(args, "-c", "user.name="+FallbackName, "-c", "user.email="+FallbackEmail)
	}
	args = append(args, "commit", "-m", msg)
	_, err := c.Run(ctx, args...)
	return err
}

func (c *Client) hasIdentity(ctx context.Context) bool {
	name, err := c.Run(ctx, "config", "user.name")
	if err != nil || name == "" {
		return false
	}
	email, err := c.Run(ctx, "config", "user.email")
	return err == nil && email != ""
}

func samePath(a, b string) bool {
	return canonical(a) == canonical(b)
}

func canonical(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}
