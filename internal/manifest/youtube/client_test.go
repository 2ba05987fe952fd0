// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/google/go-cmp/cmp"
	ytlib "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	video   *ytlib.Video
	err     error
	urlErrs map[int]error
	hc      *http.Client
}

func (f *fakeSource) GetVideoContext(_ context.Context, _ string) (*ytlib.Video, error) {
	return f.video, f.err
}

func (f *fakeSource) GetStreamURLContext(_ context.Context, _ *ytlib.Video, format *ytlib.Format) (string, error) {
	if err, ok := f.urlErrs[format.ItagNo]; ok {
		return "", err
	}
	return "https://rr1.example/videoplayback?itag=" + format.MimeType, nil
}

func newTestClient(src *fakeSource) *Client {
	return New(time.Second, zerolog.New(io.Discard), WithSourceFactory(func(hc *http.Client) VideoSource {
		src.hc = hc
		return src
	}))
}

func sampleVideo() *ytlib.Video {
	return &ytlib.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Sample",
		Duration: 212 * time.Second,
		Thumbnails: ytlib.Thumbnails{
			{URL: "https://i.ytimg.com/small.jpg", Width: 120, Height: 90},
			{URL: "https://i.ytimg.com/maxres.jpg", Width: 1280, Height: 720},
		},
		Formats: ytlib.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Bitrate: 500000, Width: 640, Height: 360, AudioChannels: 2},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Bitrate: 4000000, Width: 1920, Height: 1080},
			{ItagNo: 248, MimeType: `video/webm; codecs="vp9"`, QualityLabel: "1080p", Bitrate: 2600000, Width: 1920, Height: 1080},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AverageBitrate: 129000, AudioChannels: 2},
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		},
	}
}

func TestResolveNormalizesFormats(t *testing.T) {
	src := &fakeSource{video: sampleVideo()}
	c := newTestClient(src)

	m, err := c.Resolve(context.Background(), "dQw4w9WgXcQ", http.Header{"Cookie": {"SID=1"}})
	require.NoError(t, err)

	assert.Equal(t, "Sample", m.Title)
	assert.Equal(t, 212, m.DurationSeconds)
	assert.Equal(t, "https://i.ytimg.com/maxres.jpg", m.ThumbnailURL)

	want := []media.StreamDescriptor{{
		SourceURL:      `https://rr1.example/videoplayback?itag=video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
		Container:      media.ContainerMP4,
		MimeType:       `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
		IsAudioPresent: true,
		IsVideoPresent: true,
		BitrateBps:     500000,
		HeightPx:       360,
		QualityLabel:   "360p",
	}}
	if diff := cmp.Diff(want, m.MuxedStreams); diff != "" {
		t.Errorf("muxed streams mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, m.VideoOnlyStreams, 2)
	assert.Equal(t, media.ContainerWEBM, m.VideoOnlyStreams[1].Container)
	require.Len(t, m.AudioOnlyStreams, 2)
	assert.Equal(t, media.ContainerM4A, m.AudioOnlyStreams[0].Container)
	assert.Equal(t, int64(129000), m.AudioOnlyStreams[0].BitrateBps, "average bitrate fallback")
	assert.Equal(t, time.Second, src.hc.Timeout)
}

func TestResolveSkipsUnresolvableFormats(t *testing.T) {
	src := &fakeSource{video: sampleVideo(), urlErrs: map[int]error{137: ytlib.ErrCipherNotFound}}
	m, err := newTestClient(src).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
	require.NoError(t, err)
	assert.Len(t, m.VideoOnlyStreams, 1)
}

func TestResolveAllUrlsFailIsUnavailable(t *testing.T) {
	v := sampleVideo()
	errs := map[int]error{}
	for _, f := range v.Formats {
		errs[f.ItagNo] = errors.New("player fetch failed")
	}
	_, err := newTestClient(&fakeSource{video: v, urlErrs: errs}).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
	require.ErrorIs(t, err, media.ErrManifestUnavailable)
}

func TestResolveNoFormatsIsNoStreamsFound(t *testing.T) {
	v := sampleVideo()
	v.Formats = nil
	m, err := newTestClient(&fakeSource{video: v}).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
	require.ErrorIs(t, err, media.ErrNoStreamsFound)
	require.NotNil(t, m)
	assert.Equal(t, "Sample", m.Title)
}

func TestResolveClassifiesLibraryErrors(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{ytlib.ErrLoginRequired, media.ErrManifestUnavailable},
		{ytlib.ErrVideoPrivate, media.ErrManifestUnavailable},
		{&ytlib.ErrPlayabiltyStatus{Status: "UNPLAYABLE", Reason: "region"}, media.ErrManifestUnavailable},
		{ytlib.ErrInvalidCharactersInVideoID, media.ErrInvalidReference},
		{errors.New("dial tcp: refused"), media.ErrManifestUnavailable},
	}
	for _, tc := range cases {
		_, err := newTestClient(&fakeSource{err: tc.in}).Resolve(context.Background(), "dQw4w9WgXcQ", nil)
		assert.ErrorIs(t, err, tc.want, tc.in.Error())
	}
}

func TestResolveSendsHeadersThroughTransport(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := &fakeSource{video: sampleVideo()}
	c := newTestClient(src)
	_, err := c.Resolve(context.Background(), "dQw4w9WgXcQ", http.Header{"Cookie": {"SID=1"}, "Referer": {"https://www.youtube.com/"}})
	require.NoError(t, err)

	resp, err := src.hc.Get(srv.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "SID=1", got.Get("Cookie"))
	assert.Equal(t, "https://www.youtube.com/", got.Get("Referer"))
}
