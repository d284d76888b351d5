// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the API client and the
// backup downloader: response status classification and request pacing.
package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrRateLimited matches any StatusError carrying HTTP 429 (Too Many
// Requests). It is never retried; the caller decides whether to abort.
var ErrRateLimited = errors.New("rate limited by API (HTTP 429)")

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 512

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return fmt.Sprintf("%s: GET %s", ErrRateLimited, e.URL)
	}
	msg := fmt.Sprintf("HTTP %d from GET %s", e.StatusCode, e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is reports whether target is ErrRateLimited and this error is a 429.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// RateLimited reports whether err is, or wraps, an HTTP 429 response.
func RateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// CheckStatus returns nil for 2xx responses. Otherwise it drains and closes
// the body and returns a *StatusError; the caller must not read resp.Body
// afterwards.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)

	u := ""
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL.Redacted()
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		URL:        u,
		Body:       strings.TrimSpace(string(body)),
	}
}
