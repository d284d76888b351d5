// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the zotero-export CLI.
// Subcommands: export (annotated items to Markdown), annotations (flat
// annotation listing), backup (full JSON snapshot with attachments and a
// git commit), catalog (local SQLite index of a backup), and version.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/zotero-export/internal/progress"
	"github.com/pdiddy/zotero-export/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitInterrupted = 130
)

// app carries state shared by all subcommands of one root command.
type app struct {
	v          *viper.Viper
	cfgFile    string
	verbose    bool
	timeout    time.Duration
	secretsDir string
	secrets    secrets.Store
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(version))
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupted")
	}
	return exitCode(err)
}

// newRootCmd builds the command tree. Each call gets its own viper instance
// so tests can run commands independently.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), secretsDir: ".secrets"}

	cmd := &cobra.Command{
		Use:   "zotero-export",
		Short: "Export and back up a Zotero library through the Web API",
		Long: `zotero-export reads a Zotero library through the Web API (v3) and writes it
to local files.

  export       writes one Markdown note per item with annotated attachments
  annotations  prints every annotation as a flat "[page] text" list
  backup       mirrors items, attachments and annotations as JSON and commits
               the result to a local git repository
  catalog      indexes a backup directory into SQLite for offline search

Credentials come from ZOTERO_API_KEY and ZOTERO_LIBRARY_ID (and optionally
ZOTERO_LIBRARY_TYPE, ZOTERO_API_URL), a zotero-export.yaml config file, or
plain-text files under .secrets/.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.setupLogging(cmd)
			if err := a.initConfig(); err != nil {
				return err
			}
			s, err := secrets.Load(a.secretsDir)
			if err != nil {
				return err
			}
			a.secrets = s
			if names := s.Names(); len(names) > 0 {
				slog.Debug("loaded secrets", "names", names)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./zotero-export.yaml or ~/.config/zotero-export/zotero-export.yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging on stderr")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "HTTP request timeout (0 means no timeout)")

	cmd.AddCommand(
		newExportCmd(a),
		newAnnotationsCmd(a),
		newBackupCmd(a),
		newCatalogCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// initConfig reads the optional config file and binds the ZOTERO_*
// environment variables. Environment values win over file values.
func (a *app) initConfig() error {
	v := a.v
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("zotero-export")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "zotero-export"))
		}
	}

	for key, env := range map[string]string{
		"api_key":      "ZOTERO_API_KEY",
		"library_id":   "ZOTERO_LIBRARY_ID",
		"library_type": "ZOTERO_LIBRARY_TYPE",
		"base_url":     "ZOTERO_API_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return configError(fmt.Errorf("reading config: %w", err))
		}
		return nil
	}
	slog.Debug("using config file", "path", v.ConfigFileUsed())
	return nil
}

// printer returns a progress printer for the command's stdout.
func printer(cmd *cobra.Command) *progress.Printer {
	w := cmd.OutOrStdout()
	return progress.NewPrinter(w, progress.IsTTY(w))
}

// exitError carries a process exit code alongside its cause.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// configError marks err as a configuration problem (exit status 2).
func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

// exitCode maps an error returned by the command tree to a process status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return exitFailure
}
