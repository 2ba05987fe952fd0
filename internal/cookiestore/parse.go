// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cookiestore

import (
	"regexp"
	"strings"
)

const httpOnlyPrefix = "#HttpOnly_"

var (
	tabRun        = regexp.MustCompile(`\t+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// LooksLikeCookiesTxt reports whether content is in Netscape cookies.txt layout.
// Content made only of comment lines counts, since a header never starts with '#'.
func LooksLikeCookiesTxt(content string) bool {
	return strings.Contains(content, "\t") ||
		strings.Contains(strings.ToLower(content), "netscape") ||
		commentsOnly(content)
}

func commentsOnly(content string) bool {
	seen := false
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			return false
		}
		seen = true
	}
	return seen
}

// HeaderFromContent turns stored content into a Cookie header value.
// cookies.txt content is parsed; anything else is taken as a header verbatim.
func HeaderFromContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if LooksLikeCookiesTxt(content) {
		return ParseCookiesTxt(content)
	}
	return strings.TrimSpace(content)
}

// ParseCookiesTxt converts Netscape cookies.txt lines into "name=value; ..."
// in first-seen order. Later duplicates overwrite earlier values. Lines with
// fewer than seven tab (or whitespace) separated fields are skipped.
func ParseCookiesTxt(content string) string {
	var order []string
	values := map[string]string{}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimPrefix(line, httpOnlyPrefix)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := fields(line, tabRun, "\t")
		if !ok {
			name, value, ok = fields(line, whitespaceRun, " ")
		}
		if !ok || name == "" {
			continue
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = value
	}

	pairs := make([]string, 0, len(order))
	for _, name := range order {
		pairs = append(pairs, name+"="+values[name])
	}
	return strings.Join(pairs, "; ")
}

func fields(line string, sep *regexp.Regexp, join string) (name, value string, ok bool) {
	parts := sep.Split(line, -1)
	if len(parts) < 7 {
		return "", "", false
	}
	return parts[5], strings.Join(parts[6:], join), true
}
