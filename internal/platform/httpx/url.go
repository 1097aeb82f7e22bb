// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"errors"
	"net/url"
	"strings"
)

var (
	ErrNotHTTP         = errors.New("scheme must be http or https")
	ErrMissingHost     = errors.New("host is required")
	ErrEmbeddedSecrets = errors.New("credentials must not be embedded in the url")
)

// SanitizeURL removes user info and query parameters for safe logging.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	return parsedURL.String()
}

// ParseServiceURL accepts an absolute http(s) base URL without user info or
// fragment. Tokens belong in headers, not in the URL.
func ParseServiceURL(s string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrNotHTTP
	}
	if u.Host == "" {
		return nil, ErrMissingHost
	}
	if u.User != nil {
		return nil, ErrEmbeddedSecrets
	}
	if u.Fragment != "" {
		return nil, errors.New("fragment not allowed")
	}
	return u, nil
}
