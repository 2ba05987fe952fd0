// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package netx

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotHTTPURL = errors.New("not a direct http(s) url")

// Redact drops user info and the query string. Signed stream URLs carry their
// credentials in the query, so only the redacted form may be logged.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ParseHTTPURL accepts absolute http/https URLs with a host and without
// embedded credentials or fragments.
func ParseHTTPURL(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotHTTPURL, err)
	}

	switch {
	case !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https"):
		return nil, fmt.Errorf("%w: scheme %q", ErrNotHTTPURL, u.Scheme)
	case u.Host == "":
		return nil, fmt.Errorf("%w: empty host", ErrNotHTTPURL)
	case u.User != nil:
		return nil, fmt.Errorf("%w: credentials in url", ErrNotHTTPURL)
	case u.Fragment != "":
		return nil, fmt.Errorf("%w: fragment in url", ErrNotHTTPURL)
	}
	return u, nil
}

// NormalizeBaseURL validates raw and strips trailing slashes so paths can be
// appended with a single "/".
func NormalizeBaseURL(raw string) (string, error) {
	u, err := ParseHTTPURL(raw)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	return strings.TrimRight(u.String(), "/"), nil
}
