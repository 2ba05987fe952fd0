// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manifest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeResolver struct {
	calls   int
	headers http.Header
	m       *media.Manifest
	err     error
	block   bool
}

func (f *fakeResolver) Resolve(ctx context.Context, _ string, headers http.Header) (*media.Manifest, error) {
	f.calls++
	f.headers = headers
	if f.block {
		<-ctx.Done()
		return nil, media.Wrap(media.ErrManifestUnavailable, "fake", ctx.Err())
	}
	return f.m, f.err
}

type staticCookie string

func (s staticCookie) GetStoredHeader() (string, bool) { return string(s), s != "" }

func manifestWith(title string) *media.Manifest {
	m := &media.Manifest{Title: title, DurationSeconds: 42, ThumbnailURL: "https://img/" + title}
	m.Add(media.StreamDescriptor{SourceURL: "https://cdn/" + title, Container: media.ContainerMP4, IsAudioPresent: true, IsVideoPresent: true})
	return m
}

func newChain(primary, fallback Resolver) *Chain {
	return &Chain{
		Primary:  primary,
		Fallback: fallback,
		Headers:  http.Header{"User-Agent": {"test-agent"}},
		Timeout:  time.Second,
		Logger:   zerolog.New(io.Discard),
	}
}

var ref = media.VideoReference{RawInput: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", VideoID: "dQw4w9WgXcQ"}

func TestChainPrimarySuccessSkipsFallback(t *testing.T) {
	primary := &fakeResolver{m: manifestWith("p")}
	fallback := &fakeResolver{m: manifestWith("f")}
	c := newChain(primary, fallback)
	c.Credentials = staticCookie("SID=abc")

	m, provider, err := c.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ProviderPrimary, provider)
	assert.Equal(t, "p", m.Title)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
	assert.Equal(t, "SID=abc", primary.headers.Get("Cookie"))
	assert.Equal(t, "test-agent", primary.headers.Get("User-Agent"))
}

func TestChainPrimaryEmptyIsNoStreamsWithoutFallback(t *testing.T) {
	empty := &media.Manifest{Title: "empty"}
	primary := &fakeResolver{m: empty, err: media.Wrap(media.ErrNoStreamsFound, "fake", nil)}
	fallback := &fakeResolver{m: manifestWith("f")}

	m, provider, err := newChain(primary, fallback).Resolve(context.Background(), ref)
	require.ErrorIs(t, err, media.ErrNoStreamsFound)
	assert.NotErrorIs(t, err, media.ErrManifestUnavailable)
	assert.Equal(t, ProviderPrimary, provider)
	assert.Same(t, empty, m)
	assert.Zero(t, fallback.calls)
}

func TestChainPrimaryFailureUsesFallbackWithoutCookie(t *testing.T) {
	primary := &fakeResolver{err: media.Wrap(media.ErrManifestUnavailable, "fake", errors.New("403"))}
	fallback := &fakeResolver{m: manifestWith("f")}
	c := newChain(primary, fallback)
	c.Credentials = staticCookie("SID=abc")

	m, provider, err := c.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ProviderFallback, provider)
	assert.Equal(t, "f", m.Title)
	assert.Equal(t, 1, fallback.calls)
	assert.Empty(t, fallback.headers.Get("Cookie"))
	assert.Equal(t, "test-agent", fallback.headers.Get("User-Agent"))
}

func TestChainPrimaryTimeoutUsesFallback(t *testing.T) {
	primary := &fakeResolver{block: true}
	fallback := &fakeResolver{m: manifestWith("f")}
	c := newChain(primary, fallback)
	c.Timeout = 20 * time.Millisecond

	_, provider, err := c.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ProviderFallback, provider)
}

func TestChainBothFailIsManifestUnavailable(t *testing.T) {
	primary := &fakeResolver{err: errors.New("plain error")}
	fallback := &fakeResolver{err: media.Wrap(media.ErrManifestUnavailable, "fake", errors.New("502"))}

	_, provider, err := newChain(primary, fallback).Resolve(context.Background(), ref)
	require.ErrorIs(t, err, media.ErrManifestUnavailable)
	assert.Equal(t, ProviderFallback, provider)
	assert.Contains(t, err.Error(), "plain error")
	assert.Contains(t, err.Error(), "502")
}

func TestChainCallerCancelledDoesNotFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &fakeResolver{err: media.Wrap(media.ErrManifestUnavailable, "fake", context.Canceled)}
	fallback := &fakeResolver{m: manifestWith("f")}

	_, _, err := newChain(primary, fallback).Resolve(ctx, ref)
	require.Error(t, err)
	assert.Zero(t, fallback.calls)
}

func TestChainMetadata(t *testing.T) {
	primary := &fakeResolver{m: &media.Manifest{Title: "only meta", DurationSeconds: 7, ThumbnailURL: "t"}, err: media.Wrap(media.ErrNoStreamsFound, "fake", nil)}
	md, err := newChain(primary, &fakeResolver{}).Metadata(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, media.Metadata{Title: "only meta", DurationSeconds: 7, ThumbnailURL: "t"}, md)

	failing := &fakeResolver{err: errors.New("down")}
	_, err = newChain(failing, failing).Metadata(context.Background(), ref)
	require.ErrorIs(t, err, media.ErrManifestUnavailable)
}

func TestChainObserverSeesOnlyRealFallbacks(t *testing.T) {
	var observed []error
	observe := func(err error) { observed = append(observed, err) }

	ok := newChain(&fakeResolver{m: manifestWith("p")}, &fakeResolver{m: manifestWith("f")})
	_, _, err := ok.ResolveObserved(context.Background(), ref, observe)
	require.NoError(t, err)
	assert.Empty(t, observed)

	failing := newChain(&fakeResolver{err: errors.New("boom")}, &fakeResolver{m: manifestWith("f")})
	_, _, err = failing.ResolveObserved(context.Background(), ref, observe)
	require.NoError(t, err)
	require.Len(t, observed, 1)
	assert.ErrorIs(t, observed[0], media.ErrManifestUnavailable)
}

func TestChainFallbackThrottled(t *testing.T) {
	primary := &fakeResolver{err: errors.New("403")}
	fallback := &fakeResolver{m: manifestWith("f")}
	c := newChain(primary, fallback)
	// A zero burst never admits a request.
	c.FallbackLimiter = rate.NewLimiter(rate.Limit(1), 0)

	_, provider, err := c.Resolve(context.Background(), ref)
	require.ErrorIs(t, err, media.ErrManifestUnavailable)
	assert.Equal(t, ProviderFallback, provider)
	assert.Zero(t, fallback.calls)

	c.FallbackLimiter = rate.NewLimiter(rate.Inf, 1)
	_, provider, err = c.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, ProviderFallback, provider)
	assert.Equal(t, 1, fallback.calls)
}
