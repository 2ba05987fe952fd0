// SPDX-License-Identifier: MIT

// Package daemon provides the HTTP server lifecycle of the service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytgrab/internal/log"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultShutdownTimeout   = 15 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// Config holds server settings. There is no write timeout: downloads stream
// for as long as the media lasts.
type Config struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	ShutdownTimeout   time.Duration
}

// Task is a background job that runs until its context is cancelled.
type Task func(ctx context.Context) error

// Daemon runs the HTTP server plus background tasks and shuts all of them
// down together.
type Daemon struct {
	cfg        Config
	handler    http.Handler
	tasks      []Task
	onShutdown []func(context.Context) error
	logger     zerolog.Logger
}

// New creates a daemon serving handler.
func New(cfg Config, handler http.Handler) *Daemon {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = defaultMaxHeaderBytes
	}
	return &Daemon{cfg: cfg, handler: handler, logger: log.WithComponent("daemon")}
}

// Go registers a background task.
func (d *Daemon) Go(t Task) {
	d.tasks = append(d.tasks, t)
}

// OnShutdown registers a hook run after the server stopped, e.g. telemetry flush.
func (d *Daemon) OnShutdown(fn func(context.Context) error) {
	d.onShutdown = append(d.onShutdown, fn)
}

// Run listens on the configured address and serves until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.ListenAddr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or the server or a task fails. Running
// downloads get ShutdownTimeout to finish before their connections are closed.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: d.cfg.ReadHeaderTimeout,
		IdleTimeout:       d.cfg.IdleTimeout,
		MaxHeaderBytes:    d.cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.logger.Info().
			Str(log.FieldEvent, "server.listening").
			Str("addr", ln.Addr().String()).
			Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return d.shutdown(srv)
	})
	for _, t := range d.tasks {
		g.Go(func() error { return t(gctx) })
	}

	err := g.Wait()
	d.logger.Info().Str(log.FieldEvent, "server.stopped").Msg("daemon stopped")
	return err
}

func (d *Daemon) shutdown(srv *http.Server) error {
	d.logger.Info().Str(log.FieldEvent, "server.shutdown").Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		d.logger.Error().Err(err).Msg("HTTP server shutdown error")
		// Streams still running past the deadline are cut.
		_ = srv.Close()
		errs = append(errs, err)
	}
	for _, fn := range d.onShutdown {
		if err := fn(ctx); err != nil {
			d.logger.Error().Err(err).Msg("shutdown hook error")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
