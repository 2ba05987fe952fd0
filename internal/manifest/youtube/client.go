// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package youtube is the primary manifest provider. It talks to the platform's
// own player backend through github.com/kkdai/youtube and normalizes the format
// list into media.StreamDescriptor values.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/platform/httpx"
	ytlib "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

const providerName = "youtube"

// VideoSource is the subset of *ytlib.Client the adapter needs.
type VideoSource interface {
	GetVideoContext(ctx context.Context, id string) (*ytlib.Video, error)
	GetStreamURLContext(ctx context.Context, video *ytlib.Video, format *ytlib.Format) (string, error)
}

// SourceFactory builds a VideoSource bound to a per-request HTTP client.
type SourceFactory func(hc *http.Client) VideoSource

// Client resolves manifests against the platform backend.
//
// The library client caches player state without locking, so a fresh one is
// built for every Resolve; only the transport (and its connection pool) is shared.
type Client struct {
	transport http.RoundTripper
	timeout   time.Duration
	newSource SourceFactory
	logger    zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithSourceFactory replaces the library client constructor (tests).
func WithSourceFactory(f SourceFactory) Option {
	return func(c *Client) { c.newSource = f }
}

// New creates a primary client. timeout bounds each HTTP exchange.
func New(timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		transport: httpx.Instrument(httpx.NewTransport(timeout)),
		timeout:   timeout,
		newSource: func(hc *http.Client) VideoSource {
			return &ytlib.Client{HTTPClient: hc}
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve fetches video details and the format list for videoID.
func (c *Client) Resolve(ctx context.Context, videoID string, headers http.Header) (*media.Manifest, error) {
	hc := &http.Client{
		Timeout:   c.timeout,
		Transport: httpx.WithHeaders(c.transport, headers),
	}
	src := c.newSource(hc)

	video, err := src.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, classify(err)
	}
	if video == nil {
		return nil, unavailable(errors.New("empty video response"))
	}
	return c.adapt(ctx, src, video)
}

// adapt normalizes the library's format list. Formats whose URL cannot be
// resolved are skipped; if every format failed that way the manifest is
// reported unavailable rather than empty.
func (c *Client) adapt(ctx context.Context, src VideoSource, video *ytlib.Video) (*media.Manifest, error) {
	logger := log.WithContext(ctx, c.logger)

	m := &media.Manifest{
		Title:           video.Title,
		DurationSeconds: media.DurationFrom(video.Duration),
		ThumbnailURL:    largestThumbnail(video.Thumbnails),
	}

	var urlErr error
	for i := range video.Formats {
		f := &video.Formats[i]
		streamURL, err := src.GetStreamURLContext(ctx, video, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, unavailable(ctx.Err())
			}
			urlErr = err
			logger.Debug().Err(err).Int("itag", f.ItagNo).Msg("skipping format without resolvable url")
			continue
		}
		m.Add(descriptorFor(f, streamURL))
	}

	if m.StreamCount() == 0 {
		if urlErr != nil {
			return nil, unavailable(fmt.Errorf("no stream url could be resolved: %w", urlErr))
		}
		return m, &media.Error{Kind: media.ErrNoStreamsFound, Op: "youtube.resolve", Provider: providerName}
	}
	return m, nil
}

func descriptorFor(f *ytlib.Format, streamURL string) media.StreamDescriptor {
	mime := strings.ToLower(f.MimeType)
	hasVideo := f.Width > 0 || f.Height > 0 || strings.HasPrefix(mime, "video/")
	hasAudio := f.AudioChannels > 0 || strings.HasPrefix(mime, "audio/")

	bitrate := f.Bitrate
	if bitrate <= 0 {
		bitrate = f.AverageBitrate
	}

	label := f.QualityLabel
	if label == "" && hasVideo && f.Height > 0 {
		label = fmt.Sprintf("%dp", f.Height)
	}

	return media.StreamDescriptor{
		SourceURL:      streamURL,
		Container:      media.ContainerFromMime(f.MimeType),
		MimeType:       f.MimeType,
		IsAudioPresent: hasAudio,
		IsVideoPresent: hasVideo,
		BitrateBps:     int64(bitrate),
		HeightPx:       f.Height,
		QualityLabel:   label,
	}
}

// largestThumbnail returns the last thumbnail, which the backend lists largest last.
func largestThumbnail(thumbs ytlib.Thumbnails) string {
	if len(thumbs) == 0 {
		return ""
	}
	return thumbs[len(thumbs)-1].URL
}

func classify(err error) error {
	var status *ytlib.ErrPlayabiltyStatus
	switch {
	case errors.Is(err, ytlib.ErrLoginRequired),
		errors.Is(err, ytlib.ErrVideoPrivate),
		errors.Is(err, ytlib.ErrNotPlayableInEmbed),
		errors.As(err, &status):
		return &media.Error{Kind: media.ErrManifestUnavailable, Op: "youtube.resolve", Provider: providerName, Status: http.StatusForbidden, Err: err}
	case errors.Is(err, ytlib.ErrInvalidCharactersInVideoID),
		errors.Is(err, ytlib.ErrVideoIDMinLength):
		return &media.Error{Kind: media.ErrInvalidReference, Op: "youtube.resolve", Provider: providerName, Err: err}
	}
	return unavailable(err)
}

func unavailable(err error) error {
	return &media.Error{Kind: media.ErrManifestUnavailable, Op: "youtube.resolve", Provider: providerName, Err: err}
}
