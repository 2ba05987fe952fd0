// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package delivery runs one download request end to end: validate, resolve,
// select, optionally transcode, and stream to the client, finalizing the
// outbound stream exactly once.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/manifest"
	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/metrics"
	"github.com/ManuGH/ytgrab/internal/platform/streamio"
	"github.com/ManuGH/ytgrab/internal/selector"
	"github.com/ManuGH/ytgrab/internal/telemetry"
	"github.com/ManuGH/ytgrab/internal/transcoder"
	"github.com/ManuGH/ytgrab/internal/videoref"
)

// ManifestSource resolves manifests with primary/fallback semantics.
type ManifestSource interface {
	ResolveObserved(ctx context.Context, ref media.VideoReference, onFallback manifest.FallbackObserver) (*media.Manifest, string, error)
	Metadata(ctx context.Context, ref media.VideoReference) (media.Metadata, error)
}

// Engine runs transcode and mux jobs.
type Engine interface {
	Run(ctx context.Context, job transcoder.Job) error
}

// Result summarises a finished delivery.
type Result struct {
	State     State
	Path      []State
	Provider  string
	Selection media.SelectionKind
	Mode      transcoder.Mode
	Bytes     int64
	Err       error
}

// Assembler wires the pipeline stages. It is safe for concurrent use; every
// Deliver call is an isolated pipeline.
type Assembler struct {
	Manifests ManifestSource
	Fetcher   Fetcher
	Engine    Engine

	// Validate defaults to videoref.Parse.
	Validate func(raw string) (media.VideoReference, error)
	// OnResult, if set, is called once per Deliver after finalization.
	OnResult func(Result)

	Logger zerolog.Logger
}

func (a *Assembler) validate(raw string) (media.VideoReference, error) {
	if a.Validate != nil {
		return a.Validate(raw)
	}
	return videoref.Parse(raw)
}

// Info returns preview metadata without selecting streams.
func (a *Assembler) Info(ctx context.Context, rawInput string) (media.Metadata, error) {
	ref, err := a.validate(rawInput)
	if err != nil {
		return media.Metadata{}, err
	}
	ctx = log.ContextWithVideoID(ctx, ref.VideoID)
	return a.Manifests.Metadata(ctx, ref)
}

// Deliver streams the media named by rawInput to out as target. Failures
// before the first byte become an error response through out.Abort; failures
// after it cut the stream. Either way the returned error carries the media
// taxonomy kind.
func (a *Assembler) Deliver(ctx context.Context, rawInput string, target media.TargetKind, out Outbound) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ctx, span := telemetry.Tracer("delivery").Start(ctx, "delivery.deliver",
		trace.WithAttributes(attribute.String(telemetry.TargetKey, string(target))))
	defer span.End()

	logger := log.WithContext(ctx, a.Logger).With().Str(log.FieldTarget, string(target)).Logger()
	st := newTracker(logger)
	res := Result{}
	sink := &sink{out: out, started: time.Now(), target: target}

	metrics.IncActiveDeliveries(string(target))
	defer metrics.DecActiveDeliveries(string(target))

	finalized := false
	finalize := func(err error) error {
		if finalized {
			return err
		}
		finalized = true
		if err != nil {
			out.Abort(err)
			st.to(StateAborted)
			return err
		}
		if cerr := out.Close(); cerr != nil {
			st.to(StateAborted)
			return media.Wrap(media.ErrClientDisconnected, "delivery.close", cerr)
		}
		st.to(StateClosed)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			_ = finalize(fmt.Errorf("delivery panic: %v", r))
			panic(r)
		}
		err = finalize(err)

		res.State, res.Path, res.Bytes, res.Err = st.current(), st.path(), sink.written, err
		a.report(logger, span, target, res)
	}()

	st.to(StateValidating)
	ref, err := a.validate(rawInput)
	if err != nil {
		return err
	}
	ctx = log.ContextWithVideoID(ctx, ref.VideoID)
	logger = logger.With().Str(log.FieldVideoID, ref.VideoID).Logger()
	st.logger = logger
	span.SetAttributes(attribute.String(telemetry.VideoIDKey, ref.VideoID))

	st.to(StateResolvingPrimary)
	m, provider, err := a.Manifests.ResolveObserved(ctx, ref, func(error) {
		st.to(StateResolvingFallback)
	})
	res.Provider = provider
	if err != nil {
		return err
	}

	st.to(StateSelecting)
	sel := selector.Select(m, target)
	res.Selection = sel.Kind
	metrics.IncSelection(string(target), sel.Kind.String())
	if sel.NoneFound() {
		return &media.Error{Kind: media.ErrNoStreamsFound, Op: "delivery.select", Provider: provider}
	}
	profile, err := transcoder.ProfileFor(sel, target)
	if err != nil {
		return err
	}
	res.Mode = profile.Mode
	sink.mode = profile.Mode
	logSelection(logger, sel, profile)

	bodies, err := a.openAll(ctx, sel.Sources())
	if err != nil {
		return err
	}
	defer closeAll(bodies)

	output := target.Output()
	h := out.Header()
	h.Set("Content-Type", output.ContentType())
	h.Set("Content-Disposition", ContentDisposition(m.Title, output.Extension(), string(target)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	sink.onFirstByte = func() { st.to(StateStreaming) }

	if profile.NeedsEngine() {
		st.to(StateTranscoding)
		err = a.Engine.Run(ctx, transcoder.Job{Inputs: readers(bodies), Output: sink, Profile: profile})
	} else {
		st.to(StateStreaming)
		_, err = streamio.Copy(ctx, sink, bodies[0])
		err = classifyCopy(err)
	}
	if err != nil {
		if errors.Is(err, media.ErrClientDisconnected) {
			cancel(err)
		}
		return normalize(ctx, err)
	}
	return nil
}

func (a *Assembler) openAll(ctx context.Context, sources []media.StreamDescriptor) ([]io.ReadCloser, error) {
	bodies := make([]io.ReadCloser, 0, len(sources))
	for _, s := range sources {
		body, err := a.Fetcher.Open(ctx, s)
		if err != nil {
			closeAll(bodies)
			if media.KindOf(err) == nil {
				err = media.Wrap(media.ErrUpstreamFetch, "delivery.open", err)
			}
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

func (a *Assembler) report(logger zerolog.Logger, span trace.Span, target media.TargetKind, res Result) {
	outcome := string(res.State)
	reason := media.Reason(res.Err)
	metrics.IncDelivery(string(target), outcome, reason)
	metrics.AddDeliveryBytes(string(target), res.Bytes)

	span.SetAttributes(
		attribute.String(telemetry.DeliveryStateKey, outcome),
		attribute.Int64(telemetry.DeliveryBytesKey, res.Bytes),
		attribute.String(telemetry.ManifestProviderKey, res.Provider),
		attribute.String(telemetry.SelectionKindKey, res.Selection.String()),
	)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetAttributes(telemetry.ErrorAttributes(reason)...)
		span.SetStatus(codes.Error, reason)

		ev := logger.Warn()
		if errors.Is(res.Err, media.ErrClientDisconnected) || errors.Is(res.Err, media.ErrInvalidReference) {
			ev = logger.Info()
		}
		ev.Err(res.Err).
			Str(log.FieldEvent, "delivery.aborted").
			Str(log.FieldReason, reason).
			Str(log.FieldProvider, res.Provider).
			Int64(log.FieldBytes, res.Bytes).
			Msg("delivery aborted")
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info().
			Str(log.FieldEvent, "delivery.closed").
			Str(log.FieldProvider, res.Provider).
			Str(log.FieldSelection, res.Selection.String()).
			Int64(log.FieldBytes, res.Bytes).
			Msg("delivery complete")
	}

	if a.OnResult != nil {
		a.OnResult(res)
	}
}

func logSelection(logger zerolog.Logger, sel media.Selection, p transcoder.Profile) {
	ev := logger.Debug().
		Str(log.FieldEvent, "delivery.selected").
		Str(log.FieldSelection, sel.Kind.String()).
		Str("mode", string(p.Mode)).
		Str(log.FieldContainer, string(sel.Primary.Container)).
		Str(log.FieldMimeType, sel.Primary.MimeType).
		Int64(log.FieldBitrate, sel.Primary.BitrateBps).
		Int(log.FieldHeight, sel.Primary.HeightPx)
	if sel.Kind == media.SelectionPair {
		ev = ev.Str("audio_mime_type", sel.Audio.MimeType).Int64("audio_bitrate_bps", sel.Audio.BitrateBps)
	}
	ev.Msg("streams selected")
}

// classifyCopy maps a passthrough copy error onto the taxonomy.
func classifyCopy(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, streamio.ErrSinkWrite):
		return media.Wrap(media.ErrClientDisconnected, "delivery.stream", err)
	case errors.Is(err, streamio.ErrSourceRead):
		return media.Wrap(media.ErrUpstreamFetch, "delivery.stream", err)
	}
	return err
}

// normalize turns a bare cancellation or peer reset into ClientDisconnected:
// the only canceller of a delivery is the client going away.
func normalize(ctx context.Context, err error) error {
	if media.KindOf(err) != nil {
		return err
	}
	if ctx.Err() != nil || streamio.IsDisconnect(err) {
		return media.Wrap(media.ErrClientDisconnected, "delivery.stream", err)
	}
	return media.Wrap(media.ErrTranscodeFailure, "delivery.stream", err)
}

func readers(bodies []io.ReadCloser) []io.Reader {
	out := make([]io.Reader, len(bodies))
	for i, b := range bodies {
		out[i] = b
	}
	return out
}

func closeAll(bodies []io.ReadCloser) {
	for _, b := range bodies {
		_ = b.Close()
	}
}

// sink counts bytes, commits the status on the first write and records the
// first-byte latency.
type sink struct {
	out         Outbound
	target      media.TargetKind
	mode        transcoder.Mode
	started     time.Time
	written     int64
	begun       bool
	onFirstByte func()
}

func (s *sink) Write(p []byte) (int, error) {
	if !s.begun && len(p) > 0 {
		s.begun = true
		s.out.WriteHeader(http.StatusOK)
		metrics.ObserveFirstByte(string(s.target), string(s.mode), time.Since(s.started))
		if s.onFirstByte != nil {
			s.onFirstByte()
		}
	}
	n, err := s.out.Write(p)
	s.written += int64(n)
	return n, err
}

func (s *sink) Flush() {
	if f, ok := s.out.(interface{ Flush() }); ok {
		f.Flush()
	}
}
