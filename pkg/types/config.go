// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultBaseURL is the Zotero Web API root.
const DefaultBaseURL = "https://api.zotero.org"

// Library kinds accepted in the endpoint path.
const (
	LibraryUsers  = "users"
	LibraryGroups = "groups"
)

// Configuration errors. The CLI maps these to exit status 2.
var (
	ErrMissingAPIKey      = errors.New("missing Zotero API key (set ZOTERO_API_KEY)")
	ErrMissingLibraryID   = errors.New("missing Zotero library ID (set ZOTERO_LIBRARY_ID)")
	ErrInvalidLibraryType = errors.New("library type must be \"users\" or \"groups\"")
	ErrMissingOutputDir   = errors.New("output directory is required")
	ErrInvalidPageSize    = errors.New("page size must be positive")
	ErrInvalidExportLimit = errors.New("limit must be positive")
	ErrMissingBackupDir   = errors.New("backup directory is required")
)

// HTTPConfig holds shared HTTP settings used by commands that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero leaves the client default (none).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LibraryConfig identifies a remote library and the credentials to read it.
type LibraryConfig struct {
	// APIKey is sent as the Zotero-API-Key header.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// LibraryID is the numeric user or group ID.
	LibraryID string `json:"library_id" yaml:"library_id" mapstructure:"library_id"`

	// LibraryType is "users" (default) or "groups".
	LibraryType string `json:"library_type" yaml:"library_type" mapstructure:"library_type"`

	// BaseURL overrides the API root (default DefaultBaseURL).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// Validate fills defaults and checks that the credentials are usable.
// It runs before any network request is made.
func (c *LibraryConfig) Validate() error {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.LibraryID = strings.TrimSpace(c.LibraryID)
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.LibraryID == "" {
		return ErrMissingLibraryID
	}
	if c.LibraryType == "" {
		c.LibraryType = LibraryUsers
	}
	if c.LibraryType != LibraryUsers && c.LibraryType != LibraryGroups {
		return fmt.Errorf("%w: got %q", ErrInvalidLibraryType, c.LibraryType)
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// Endpoint returns the library root, e.g. https://api.zotero.org/users/123.
func (c LibraryConfig) Endpoint() string {
	return fmt.Sprintf("%s/%s/%s", c.BaseURL, c.LibraryType, c.LibraryID)
}

// ExportConfig holds settings for the Markdown export command.
type ExportConfig struct {
	// OutputDir receives one Markdown file per annotated item.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Limit bounds the number of top-level items fetched (default 100).
	Limit int `json:"limit" yaml:"limit"`
}

// Validate checks the export settings.
func (c ExportConfig) Validate() error {
	if c.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if c.Limit <= 0 {
		return ErrInvalidExportLimit
	}
	return nil
}

// BackupConfig holds settings for the backup command.
type BackupConfig struct {
	// OutputDir is the backup root (contains items/, attachments/, annotations/, meta/).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// IncludeAttachments enables downloading attachment binaries.
	IncludeAttachments bool `json:"include_attachments" yaml:"include_attachments"`

	// Commit enables the git snapshot after the backup.
	Commit bool `json:"commit" yaml:"commit"`

	// Sleep is the fixed delay after each paginated or children request (default 500ms).
	Sleep time.Duration `json:"sleep" yaml:"sleep"`

	// PerPage is the page size for top-level item pagination (default 100).
	PerPage int `json:"per_page" yaml:"per_page"`

	// Now returns the current time; nil means time.Now. Tests pin it.
	Now func() time.Time `json:"-" yaml:"-"`
}

// Validate checks the backup settings.
func (c BackupConfig) Validate() error {
	if c.OutputDir == "" {
		return ErrMissingOutputDir
	}
	if c.PerPage <= 0 {
		return ErrInvalidPageSize
	}
	return nil
}

// Clock returns the configured time source.
func (c BackupConfig) Clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

// CatalogConfig holds settings for the local catalog of a backup directory.
type CatalogConfig struct {
	// BackupDir is the backup root the catalog is built from.
	BackupDir string `json:"backup_dir" yaml:"backup_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Validate checks the catalog settings.
func (c CatalogConfig) Validate() error {
	if c.BackupDir == "" {
		return ErrMissingBackupDir
	}
	return nil
}
