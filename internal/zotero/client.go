// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero is a read-only client for the Zotero Web API (v3).
// It fetches top-level items, their child attachments, and the annotations
// under each attachment, and streams attachment files.
package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/zotero-export/internal/httputil"
	"github.com/pdiddy/zotero-export/pkg/types"
)

const (
	apiVersion = "3"

	// MaxPageSize is the largest page the API serves.
	MaxPageSize = 100

	defaultUserAgent = "zotero-export/0.1"
)

// Client issues authenticated GET requests against one library. It is not
// safe for concurrent use; the tool drives it from a single goroutine.
type Client struct {
	http      *http.Client
	baseURL   *url.URL
	endpoint  string
	apiKey    string
	userAgent string
	pacer     httputil.Pacer
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPacer sets the delay policy applied after each paginated items request
// and each children request. The default is httputil.NoDelay.
func WithPacer(p httputil.Pacer) Option {
	return func(c *Client) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New validates cfg and returns a client for its library. A nil httpClient
// uses a client with default settings.
func New(cfg types.LibraryConfig, httpClient *http.Client, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", cfg.BaseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		http:      withoutCrossHostKey(httpClient, base.Host),
		baseURL:   base,
		endpoint:  cfg.Endpoint(),
		apiKey:    cfg.APIKey,
		userAgent: defaultUserAgent,
		pacer:     httputil.NoDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the library root URL.
func (c *Client) Endpoint() string { return c.endpoint }

// TopItems fetches a single page of at most limit top-level items.
func (c *Client) TopItems(ctx context.Context, limit int) ([]types.Item, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	return c.getItems(ctx, "/items/top", params)
}

// AllTopItems pages through every top-level item. It advances start by the
// size of each batch and stops after an empty batch or a batch shorter than
// perPage. The pacer waits after every page request.
func (c *Client) AllTopItems(ctx context.Context, perPage int) ([]types.Item, error) {
	return c.paginate(ctx, "/items/top", perPage)
}

// Children fetches every child of the item with the given key. The pacer
// waits after each request.
func (c *Client) Children(ctx context.Context, key string) ([]types.Item, error) {
	return c.paginate(ctx, "/items/"+url.PathEscape(key)+"/children", MaxPageSize)
}

// Attachments returns the children of key whose type is attachment.
func (c *Client) Attachments(ctx context.Context, key string) ([]types.Item, error) {
	return c.childrenOfType(ctx, key, types.ItemTypeAttachment)
}

// Annotations returns the children of key whose type is annotation.
func (c *Client) Annotations(ctx context.Context, key string) ([]types.Item, error) {
	return c.childrenOfType(ctx, key, types.ItemTypeAnnotation)
}

// Item fetches a single item by key.
func (c *Client) Item(ctx context.Context, key string) (types.Item, error) {
	resp, err := c.get(ctx, c.endpoint+"/items/"+url.PathEscape(key), nil)
	if err != nil {
		return types.Item{}, err
	}
	defer resp.Body.Close()

	var it types.Item
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return types.Item{}, fmt.Errorf("decoding item %s: %w", key, err)
	}
	return it, nil
}

// FileURL returns the generic file endpoint for an attachment key.
func (c *Client) FileURL(key string) string {
	return c.endpoint + "/items/" + url.PathEscape(key) + "/file"
}

// Open issues a streaming GET for href, which may be absolute or relative to
// the API host. On success the caller owns the returned body.
func (c *Client) Open(ctx context.Context, href string) (io.ReadCloser, error) {
	if strings.HasPrefix(href, "/") {
		href = c.baseURL.Scheme + "://" + c.baseURL.Host + href
	}
	resp, err := c.get(ctx, href, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) childrenOfType(ctx context.Context, key, itemType string) ([]types.Item, error) {
	children, err := c.Children(ctx, key)
	if err != nil {
		return nil, err
	}
	var out []types.Item
	for _, child := range children {
		if child.Type() == itemType {
			out = append(out, child)
		}
	}
	return out, nil
}

func (c *Client) paginate(ctx context.Context, path string, perPage int) ([]types.Item, error) {
	if perPage <= 0 {
		perPage = MaxPageSize
	}

	var all []types.Item
	for start := 0; ; {
		params := url.Values{
			"start": {strconv.Itoa(start)},
			"limit": {strconv.Itoa(perPage)},
		}
		batch, err := c.getItems(ctx, path, params)
		if err != nil {
			return all, err
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return all, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		c.logger.Debug("fetched page", "path", path, "start", start, "count", len(batch))
		start += len(batch)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}

func (c *Client) getItems(ctx context.Context, path string, params url.Values) ([]types.Item, error) {
	resp, err := c.get(ctx, c.endpoint+path, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var items []types.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return items, nil
}

// get performs one GET and classifies the response status. Non-2xx
// responses come back as *httputil.StatusError with the body closed.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	sameHost := u.Host == c.baseURL.Host
	if sameHost {
		q := u.Query()
		for k, vs := range params {
			q[k] = vs
		}
		if q.Get("v") == "" {
			q.Set("v", apiVersion)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if sameHost {
		req.Header.Set("Zotero-API-Key", c.apiKey)
		req.Header.Set("Zotero-API-Version", apiVersion)
	}

	c.logger.Debug("GET", "url", u.Redacted())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u.Redacted(), err)
	}
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// maxRedirects matches the net/http default policy.
const maxRedirects = 10

// withoutCrossHostKey returns a copy of hc whose redirects drop the API
// headers once they leave apiHost. File downloads redirect to storage hosts
// and net/http forwards custom headers on redirect.
func withoutCrossHostKey(hc *http.Client, apiHost string) *http.Client {
	clone := *hc
	next := hc.CheckRedirect
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if req.URL.Host != apiHost {
			req.Header.Del("Zotero-API-Key")
			req.Header.Del("Zotero-API-Version")
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &clone
}
