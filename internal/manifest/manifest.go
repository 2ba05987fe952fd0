// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manifest resolves a video reference into a stream manifest using a
// primary provider and, only when that fails, a fallback provider.
package manifest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/metrics"
	"github.com/ManuGH/ytgrab/internal/platform/httpx"
	"github.com/ManuGH/ytgrab/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Resolver turns a video identifier into a manifest.
//
// Implementations return media.ErrManifestUnavailable for transport, status and
// payload failures, and media.ErrNoStreamsFound together with a non-nil manifest
// when the payload parsed but held no usable stream.
type Resolver interface {
	Resolve(ctx context.Context, videoID string, headers http.Header) (*media.Manifest, error)
}

// CredentialSupplier yields an opaque Cookie header value, if one is stored.
type CredentialSupplier interface {
	GetStoredHeader() (string, bool)
}

// Provider names used in logs and metrics.
const (
	ProviderPrimary  = "primary"
	ProviderFallback = "fallback"
)

const defaultTimeout = 20 * time.Second

// Chain resolves through Primary first and Fallback only after Primary failed.
// It holds no per-request state and is safe for concurrent use.
type Chain struct {
	Primary  Resolver
	Fallback Resolver

	// Headers is the default header set for every manifest request.
	Headers http.Header
	// Credentials is optional. Its cookie is only sent to the primary provider.
	Credentials CredentialSupplier
	// Timeout bounds each provider call.
	Timeout time.Duration
	// FallbackLimiter, if set, throttles queries to the fallback instance.
	// Public instances are shared; waiting counts against Timeout.
	FallbackLimiter *rate.Limiter

	Logger zerolog.Logger
}

// FallbackObserver is told about the primary failure right before the
// fallback provider is queried.
type FallbackObserver func(primaryErr error)

// Resolve returns the manifest and the provider that produced it.
func (c *Chain) Resolve(ctx context.Context, ref media.VideoReference) (*media.Manifest, string, error) {
	return c.ResolveObserved(ctx, ref, nil)
}

// ResolveObserved is Resolve with a per-call fallback observer, which may be nil.
func (c *Chain) ResolveObserved(ctx context.Context, ref media.VideoReference, onFallback FallbackObserver) (*media.Manifest, string, error) {
	m, err := c.resolveOne(ctx, ProviderPrimary, c.Primary, ref.VideoID, c.primaryHeaders())
	if err == nil || !shouldFallback(ctx, err) {
		return m, ProviderPrimary, err
	}

	logger := log.WithContext(ctx, c.Logger)
	logger.Warn().
		Err(err).
		Str(log.FieldEvent, "manifest.primary_failed").
		Str(log.FieldVideoID, ref.VideoID).
		Msg("primary manifest provider failed, trying fallback")

	if c.Fallback == nil {
		return nil, ProviderPrimary, err
	}
	if onFallback != nil {
		onFallback(err)
	}
	m, ferr := c.resolveOne(ctx, ProviderFallback, c.Fallback, ref.VideoID, c.Headers.Clone())
	if ferr != nil {
		if errors.Is(ferr, media.ErrNoStreamsFound) {
			return m, ProviderFallback, ferr
		}
		return nil, ProviderFallback, &media.Error{
			Kind:     media.ErrManifestUnavailable,
			Op:       "manifest.resolve",
			Provider: ProviderFallback,
			Err:      errors.Join(err, ferr),
		}
	}
	return m, ProviderFallback, nil
}

// Metadata resolves the preview metadata with the same primary/fallback contract.
// A manifest without usable streams still carries valid metadata.
func (c *Chain) Metadata(ctx context.Context, ref media.VideoReference) (media.Metadata, error) {
	m, _, err := c.Resolve(ctx, ref)
	if err != nil && !(errors.Is(err, media.ErrNoStreamsFound) && m != nil) {
		return media.Metadata{}, err
	}
	return m.Metadata(), nil
}

func (c *Chain) resolveOne(ctx context.Context, provider string, r Resolver, videoID string, headers http.Header) (*media.Manifest, error) {
	if r == nil {
		return nil, &media.Error{Kind: media.ErrManifestUnavailable, Op: "manifest.resolve", Provider: provider, Err: errors.New("provider not configured")}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if provider == ProviderFallback && c.FallbackLimiter != nil {
		if err := c.FallbackLimiter.Wait(ctx); err != nil {
			metrics.ManifestResolveTotal.WithLabelValues(provider, "throttled").Inc()
			return nil, &media.Error{Kind: media.ErrManifestUnavailable, Op: "manifest.throttle", Provider: provider, Err: err}
		}
	}

	ctx, span := telemetry.Tracer("ytgrab.manifest").Start(ctx, "manifest.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.ManifestProviderKey, provider),
		attribute.String(telemetry.VideoIDKey, videoID),
	)

	start := time.Now()
	m, err := r.Resolve(ctx, videoID, headers)
	metrics.ObserveManifestResolve(provider, resultLabel(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "manifest resolve failed")
		if media.KindOf(err) == nil {
			err = &media.Error{Kind: media.ErrManifestUnavailable, Op: "manifest.resolve", Provider: provider, Err: err}
		}
		return m, err
	}
	span.SetAttributes(attribute.Int(telemetry.ManifestStreamsKey, m.StreamCount()))
	return m, nil
}

func (c *Chain) primaryHeaders() http.Header {
	extra := http.Header{}
	if c.Credentials != nil {
		if cookie, ok := c.Credentials.GetStoredHeader(); ok && cookie != "" {
			extra.Set("Cookie", cookie)
		}
	}
	return httpx.Merge(c.Headers, extra)
}

// shouldFallback: only provider failures move on; an empty-but-valid manifest
// and a caller that went away do not.
func shouldFallback(ctx context.Context, err error) bool {
	if errors.Is(err, media.ErrNoStreamsFound) {
		return false
	}
	return ctx.Err() == nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, media.ErrNoStreamsFound):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
