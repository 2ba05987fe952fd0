// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package piped is the fallback manifest provider: a third-party mirroring
// proxy exposing /api/v1/streams/{id}.
package piped

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/platform/httpx"
	"github.com/ManuGH/ytgrab/internal/platform/netx"
)

// DefaultBaseURL is used when no instance is configured.
const DefaultBaseURL = "https://piped.video"

const (
	providerName = "piped"
	maxBodyBytes = 8 << 20
	maxErrorBody = 512
)

// Client resolves manifests from a mirroring proxy instance.
type Client struct {
	base string
	http *http.Client
}

// New creates a fallback client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		base: normalizeBase(baseURL),
		http: httpx.NewClient(timeout, nil),
	}
}

// BaseURL returns the normalized instance URL.
func (c *Client) BaseURL() string {
	return c.base
}

type stream struct {
	URL       string `json:"url"`
	Format    string `json:"format"`
	MimeType  string `json:"mimeType"`
	Quality   string `json:"quality"`
	Bitrate   int64  `json:"bitrate"`
	Height    int    `json:"height"`
	FPS       int    `json:"fps"`
	Itag      int    `json:"itag"`
	VideoOnly *bool  `json:"videoOnly"`
}

type streamsResponse struct {
	Error        string   `json:"error"`
	Message      string   `json:"message"`
	Title        string   `json:"title"`
	Duration     int      `json:"duration"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Livestream   bool     `json:"livestream"`
	MuxedStreams []stream `json:"muxedStreams"`
	VideoStreams []stream `json:"videoStreams"`
	AudioStreams []stream `json:"audioStreams"`
}

// Resolve fetches the streams document for videoID.
func (c *Client) Resolve(ctx context.Context, videoID string, headers http.Header) (*media.Manifest, error) {
	u := fmt.Sprintf("%s/api/v1/streams/%s", c.base, url.PathEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, unavailable(0, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &media.Error{
			Kind:     media.ErrManifestUnavailable,
			Op:       "piped.resolve",
			Provider: providerName,
			Status:   resp.StatusCode,
			Err:      errors.New(strings.TrimSpace(string(body))),
		}
	}

	var doc streamsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&doc); err != nil {
		return nil, unavailable(resp.StatusCode, fmt.Errorf("decode streams: %w", err))
	}
	if doc.Error != "" {
		return nil, unavailable(resp.StatusCode, fmt.Errorf("instance error: %s %s", doc.Error, doc.Message))
	}

	m := adapt(&doc)
	if m.StreamCount() == 0 {
		return m, &media.Error{Kind: media.ErrNoStreamsFound, Op: "piped.resolve", Provider: providerName}
	}
	return m, nil
}

func adapt(doc *streamsResponse) *media.Manifest {
	m := &media.Manifest{
		Title:           doc.Title,
		DurationSeconds: doc.Duration,
		ThumbnailURL:    doc.ThumbnailURL,
	}
	for _, s := range doc.MuxedStreams {
		m.Add(descriptor(s, true, true))
	}
	for _, s := range doc.VideoStreams {
		videoOnly := s.VideoOnly == nil || *s.VideoOnly
		m.Add(descriptor(s, true, !videoOnly))
	}
	for _, s := range doc.AudioStreams {
		m.Add(descriptor(s, false, true))
	}
	return m
}

func descriptor(s stream, hasVideo, hasAudio bool) media.StreamDescriptor {
	height := s.Height
	if height == 0 && hasVideo {
		height = heightFromQuality(s.Quality)
	}
	return media.StreamDescriptor{
		SourceURL:      s.URL,
		Container:      containerFor(s.Format, s.MimeType),
		MimeType:       s.MimeType,
		IsAudioPresent: hasAudio,
		IsVideoPresent: hasVideo,
		BitrateBps:     s.Bitrate,
		HeightPx:       height,
		QualityLabel:   s.Quality,
	}
}

func containerFor(format, mime string) media.Container {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "MPEG_4", "MP4":
		return media.ContainerMP4
	case "M4A":
		return media.ContainerM4A
	case "WEBM":
		return media.ContainerWEBM
	}
	return media.ContainerFromMime(mime)
}

var qualityHeight = regexp.MustCompile(`(?i)(\d{3,4})p`)

func heightFromQuality(q string) int {
	m := qualityHeight.FindStringSubmatch(q)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	return h
}

func unavailable(status int, err error) error {
	return &media.Error{Kind: media.ErrManifestUnavailable, Op: "piped.resolve", Provider: providerName, Status: status, Err: err}
}

// normalizeBase trims trailing slashes. Invalid URLs are kept as given so the
// request fails with a provider error rather than at construction.
func normalizeBase(raw string) string {
	if base, err := netx.NormalizeBaseURL(raw); err == nil {
		return base
	}
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
