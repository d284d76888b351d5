// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"
	"net/http"

	"github.com/pdiddy/zotero-export/internal/httputil"
	"github.com/pdiddy/zotero-export/internal/zotero"
	"github.com/pdiddy/zotero-export/pkg/types"
)

// libraryConfig resolves credentials from the environment, config file and
// secrets directory, in that order, and validates them before any request
// is made.
func (a *app) libraryConfig() (types.LibraryConfig, error) {
	cfg := types.LibraryConfig{
		APIKey:      a.v.GetString("api_key"),
		LibraryID:   a.v.GetString("library_id"),
		LibraryType: a.v.GetString("library_type"),
		BaseURL:     a.v.GetString("base_url"),
	}
	a.secrets.FillLibrary(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) httpConfig() types.HTTPConfig {
	return types.HTTPConfig{
		Timeout:   a.timeout,
		UserAgent: "zotero-export/" + version,
	}
}

// newClient builds an API client for the configured library.
func (a *app) newClient(pacer httputil.Pacer) (*zotero.Client, error) {
	lib, err := a.libraryConfig()
	if err != nil {
		return nil, err
	}
	hc := a.httpConfig()
	return zotero.New(lib, &http.Client{Timeout: hc.Timeout},
		zotero.WithPacer(pacer),
		zotero.WithUserAgent(hc.UserAgent),
		zotero.WithLogger(slog.Default()),
	)
}
