// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package videoref validates user input and extracts a canonical video identifier.
// Parsing is pure: no network access and no side effects.
package videoref

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/ManuGH/ytgrab/internal/media"
)

var (
	errEmpty        = errors.New("empty input")
	errScheme       = errors.New("unsupported URL scheme")
	errHost         = errors.New("unsupported host")
	errNoIdentifier = errors.New("no video identifier in URL")
	errIdentifier   = errors.New("malformed video identifier")
)

// DefaultIDPattern matches an 11 character YouTube video ID.
var DefaultIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// DefaultHosts are the hostnames accepted by DefaultGrammar.
var DefaultHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"gaming.youtube.com",
	"youtube-nocookie.com",
	"www.youtube-nocookie.com",
	"youtu.be",
}

// shortHosts carry the identifier as the first path segment.
var shortHosts = map[string]struct{}{"youtu.be": {}}

// pathPrefixes carry the identifier in the segment after the prefix.
var pathPrefixes = []string{"/embed/", "/shorts/", "/live/", "/v/", "/e/"}

// Grammar describes which inputs are accepted.
type Grammar struct {
	Hosts       []string
	IDPattern   *regexp.Regexp
	AllowBareID bool
}

// DefaultGrammar accepts YouTube watch/short/embed URLs and bare IDs.
func DefaultGrammar() Grammar {
	return Grammar{Hosts: DefaultHosts, IDPattern: DefaultIDPattern, AllowBareID: true}
}

// Parse validates raw with the default grammar.
func Parse(raw string) (media.VideoReference, error) {
	return DefaultGrammar().Parse(raw)
}

// Parse validates raw and returns a reference or an error wrapping media.ErrInvalidReference.
func (g Grammar) Parse(raw string) (media.VideoReference, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return media.VideoReference{}, invalid(errEmpty)
	}
	pattern := g.IDPattern
	if pattern == nil {
		pattern = DefaultIDPattern
	}

	if g.AllowBareID && pattern.MatchString(input) {
		return media.VideoReference{RawInput: raw, VideoID: input}, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return media.VideoReference{}, invalid(err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return media.VideoReference{}, invalid(errScheme)
	}

	host := strings.ToLower(u.Hostname())
	if !g.hostAllowed(host) {
		return media.VideoReference{}, invalid(errHost)
	}

	id := extractID(host, u)
	if id == "" {
		return media.VideoReference{}, invalid(errNoIdentifier)
	}
	if !pattern.MatchString(id) {
		return media.VideoReference{}, invalid(errIdentifier)
	}
	return media.VideoReference{RawInput: raw, VideoID: id}, nil
}

func (g Grammar) hostAllowed(host string) bool {
	hosts := g.Hosts
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	for _, h := range hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func extractID(host string, u *url.URL) string {
	if _, ok := shortHosts[host]; ok {
		seg, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		return seg
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for _, prefix := range pathPrefixes {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			seg, _, _ := strings.Cut(rest, "/")
			return seg
		}
	}
	return ""
}

func invalid(err error) error {
	return media.Wrap(media.ErrInvalidReference, "videoref.parse", err)
}
