// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transcoder drives the external engine (ffmpeg) that turns one or two
// upstream byte streams into a single output stream.
package transcoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/metrics"
	"github.com/ManuGH/ytgrab/internal/platform/streamio"
	"github.com/ManuGH/ytgrab/internal/procgroup"
	"github.com/ManuGH/ytgrab/internal/telemetry"
)

const (
	defaultKillGrace   = 2 * time.Second
	defaultStderrLines = 64
	failureTailLines   = 8
)

// Config configures the orchestrator.
type Config struct {
	Bin          string        // engine binary, "ffmpeg" if empty
	AudioBitrate string        // e.g. "192k"
	KillGrace    time.Duration // SIGTERM to SIGKILL delay on cancellation
	StderrLines  int           // stderr lines retained for diagnostics
}

// Orchestrator runs one engine process per Job. It holds no per-run state and
// is safe for concurrent use.
type Orchestrator struct {
	cfg    Config
	logger zerolog.Logger
}

// Job is a single engine run.
type Job struct {
	Inputs  []io.Reader // upstream bodies; closed on cancellation if they implement io.Closer
	Output  io.Writer
	Profile Profile
}

// New creates an Orchestrator, filling defaults.
func New(cfg Config) *Orchestrator {
	if cfg.Bin == "" {
		cfg.Bin = "ffmpeg"
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = DefaultAudioBitrate
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = defaultKillGrace
	}
	if cfg.StderrLines <= 0 {
		cfg.StderrLines = defaultStderrLines
	}
	return &Orchestrator{cfg: cfg, logger: log.WithComponent("transcoder")}
}

// Run feeds the inputs to the engine and copies its output until the engine
// exits. Any failure is returned as one of: ErrTranscodeFailure (engine error),
// ErrUpstreamFetch (an input failed), ErrClientDisconnected (output write
// failed), or the cause of ctx. The engine process group is always reaped
// before Run returns.
func (o *Orchestrator) Run(ctx context.Context, job Job) (err error) {
	p := job.Profile
	if !p.NeedsEngine() {
		return fmt.Errorf("%w: mode %q does not use the engine", ErrInvalidJob, p.Mode)
	}
	if len(job.Inputs) != p.Inputs() || job.Output == nil {
		return fmt.Errorf("%w: mode %q needs %d inputs and an output, got %d", ErrInvalidJob, p.Mode, p.Inputs(), len(job.Inputs))
	}
	args, err := BuildArgs(p, o.cfg.AudioBitrate)
	if err != nil {
		return err
	}

	ctx, span := telemetry.Tracer("transcoder").Start(ctx, "transcoder.run",
		trace.WithAttributes(telemetry.TranscodeAttributes(string(p.Mode), string(p.Container), p.VideoCodec, p.AudioCodec, len(job.Inputs))...))
	defer span.End()

	logger := log.WithContext(ctx, o.logger)
	ring := NewLineRing(o.cfg.StderrLines)
	started := time.Now()

	defer func() {
		result := "ok"
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case ctx.Err() != nil:
			result = "canceled"
		default:
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, media.Reason(err))
		}
		metrics.IncTranscode(string(p.Mode), result)
		logger.Debug().
			Str(log.FieldEvent, "transcode.finished").
			Str("mode", string(p.Mode)).
			Str("result", result).
			Dur("duration", time.Since(started)).
			Msg("engine run finished")
	}()

	cmd := exec.Command(o.cfg.Bin, args...) // #nosec G204 -- fixed argument template
	procgroup.Set(cmd)
	cmd.Stderr = ring

	fds, err := newPipes(cmd, len(job.Inputs))
	if err != nil {
		return media.Wrap(media.ErrTranscodeFailure, "transcoder.pipes", err)
	}
	defer fds.closeParent()

	logger.Info().
		Str(log.FieldEvent, "transcode.start").
		Str("mode", string(p.Mode)).
		Str("command", cmd.String()).
		Msg("starting engine")

	if err := cmd.Start(); err != nil {
		fds.closeChild()
		return media.Wrap(media.ErrTranscodeFailure, "transcoder.start", err)
	}
	fds.closeChild()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range job.Inputs {
		w := fds.inputs[i]
		g.Go(func() error { return feed(gctx, w, src) })
	}
	g.Go(func() error {
		if _, err := streamio.Copy(gctx, job.Output, fds.output); err != nil {
			if errors.Is(err, streamio.ErrSinkWrite) {
				return media.Wrap(media.ErrClientDisconnected, "transcoder.drain", err)
			}
			if errors.Is(err, streamio.ErrSourceRead) {
				return media.Wrap(media.ErrTranscodeFailure, "transcoder.drain", err)
			}
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case werr := <-waitCh:
			if werr != nil {
				return o.engineFailure(span, logger, werr, ring)
			}
			return nil
		case <-gctx.Done():
			_ = procgroup.Terminate(cmd, waitCh, o.cfg.KillGrace)
			return context.Cause(gctx)
		}
	})

	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = context.Cause(ctx)
	}
	return err
}

func (o *Orchestrator) engineFailure(span trace.Span, logger zerolog.Logger, werr error, ring *LineRing) error {
	tail := ring.LastN(failureTailLines)
	reason := ClassifyFFmpegError(tail)
	span.SetAttributes(attribute.String(telemetry.TranscodeFailureCauseKey, reason))
	metrics.IncTranscodeFailureReason(reason)
	logger.Warn().
		Err(werr).
		Str(log.FieldEvent, "transcode.failed").
		Str(log.FieldReason, reason).
		Strs("stderr", tail).
		Msg("engine exited with error")

	cause := werr
	if len(tail) > 0 {
		cause = fmt.Errorf("%w: %s", werr, strings.Join(tail, " | "))
	}
	return media.Wrap(media.ErrTranscodeFailure, "transcoder.run", cause)
}

// feed copies one upstream body into an engine input pipe. The write end is
// closed only after a clean EOF so a failed upstream never looks like a
// complete input to the engine.
func feed(ctx context.Context, w *os.File, src io.Reader) error {
	if c, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	_, err := streamio.Copy(ctx, w, src)
	switch {
	case err == nil:
		return w.Close()
	case errors.Is(err, streamio.ErrSinkWrite):
		// The engine stopped reading; its exit status decides the outcome.
		_ = w.Close()
		return nil
	case errors.Is(err, streamio.ErrSourceRead):
		return media.Wrap(media.ErrUpstreamFetch, "transcoder.feed", err)
	default:
		return err
	}
}

// pipes holds both ends of the engine's stdio. Input 0 is stdin, input 1 is
// passed as ExtraFiles[0] (fd 3).
type pipes struct {
	inputs   []*os.File // parent write ends
	output   *os.File   // parent read end
	children []*os.File // ends inherited by the engine
}

func newPipes(cmd *exec.Cmd, n int) (*pipes, error) {
	p := &pipes{}
	for i := 0; i < n; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			p.closeChild()
			p.closeParent()
			return nil, err
		}
		p.inputs = append(p.inputs, w)
		p.children = append(p.children, r)
		if i == 0 {
			cmd.Stdin = r
		} else {
			cmd.ExtraFiles = append(cmd.ExtraFiles, r)
		}
	}

	r, w, err := os.Pipe()
	if err != nil {
		p.closeChild()
		p.closeParent()
		return nil, err
	}
	p.output = r
	p.children = append(p.children, w)
	cmd.Stdout = w
	return p, nil
}

func (p *pipes) closeChild() {
	for _, f := range p.children {
		_ = f.Close()
	}
	p.children = nil
}

func (p *pipes) closeParent() {
	for _, f := range p.inputs {
		_ = f.Close()
	}
	if p.output != nil {
		_ = p.output.Close()
	}
}
