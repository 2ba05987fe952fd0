// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package piped

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const streamsJSON = `{
  "title": "café ♪",
  "duration": 212,
  "thumbnailUrl": "https://pipedproxy.example/vi/maxres.jpg",
  "livestream": false,
  "videoStreams": [
    {"url": "https://proxy/v/137", "format": "MPEG_4", "mimeType": "video/mp4", "quality": "1080p", "bitrate": 4000000, "videoOnly": true},
    {"url": "https://proxy/v/18", "format": "MPEG_4", "mimeType": "video/mp4", "quality": "360p", "bitrate": 500000, "videoOnly": false},
    {"url": "https://proxy/v/248", "format": "WEBM", "mimeType": "video/webm", "quality": "1080p", "bitrate": 2600000}
  ],
  "audioStreams": [
    {"url": "https://proxy/a/140", "format": "M4A", "mimeType": "audio/mp4", "quality": "128 kbps", "bitrate": 129000},
    {"url": "https://proxy/a/251", "format": "WEBMA_OPUS", "mimeType": "audio/webm", "quality": "160 kbps", "bitrate": 160000},
    {"url": "", "format": "M4A", "mimeType": "audio/mp4", "bitrate": 1}
  ]
}`

func TestResolveAdaptsPayload(t *testing.T) {
	var gotPath, gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(streamsJSON))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	assert.Equal(t, srv.URL, c.BaseURL())

	m, err := c.Resolve(context.Background(), "dQw4w9WgXcQ", http.Header{"User-Agent": {"ua/1"}})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/streams/dQw4w9WgXcQ", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "ua/1", gotUA)

	assert.Equal(t, "café ♪", m.Title)
	assert.Equal(t, 212, m.DurationSeconds)

	require.Len(t, m.MuxedStreams, 1)
	assert.Equal(t, "https://proxy/v/18", m.MuxedStreams[0].SourceURL)
	assert.Equal(t, 360, m.MuxedStreams[0].HeightPx)

	require.Len(t, m.VideoOnlyStreams, 2, "videoOnly defaults to true")
	assert.Equal(t, media.ContainerMP4, m.VideoOnlyStreams[0].Container)
	assert.Equal(t, media.ContainerWEBM, m.VideoOnlyStreams[1].Container)

	require.Len(t, m.AudioOnlyStreams, 2, "entries without url are dropped")
	assert.Equal(t, media.ContainerM4A, m.AudioOnlyStreams[0].Container)
	assert.Equal(t, media.ContainerWEBM, m.AudioOnlyStreams[1].Container, "unknown format falls back to mime")
}

func TestResolveFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"5xx": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "instance overloaded", http.StatusServiceUnavailable)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not-json"))
		},
		"error document": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"com.github.Exception","message":"Video unavailable"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := New(srv.URL, time.Second).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
			require.ErrorIs(t, err, media.ErrManifestUnavailable)
		})
	}
}

func TestResolveTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(srv.URL, 50*time.Millisecond).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
	require.ErrorIs(t, err, media.ErrManifestUnavailable)
}

func TestResolveEmptyManifestIsNoStreamsFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"title":"t","duration":1,"videoStreams":[],"audioStreams":[]}`))
	}))
	defer srv.Close()

	m, err := New(srv.URL, time.Second).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
	require.ErrorIs(t, err, media.ErrNoStreamsFound)
	require.NotNil(t, m)
	assert.Equal(t, "t", m.Title)
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, New("", time.Second).BaseURL())
}
