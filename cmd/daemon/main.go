// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/ytgrab/internal/config"
	xglog "github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/telemetry"
	"github.com/ManuGH/ytgrab/internal/transcoder"
	"github.com/ManuGH/ytgrab/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "cookie" {
		os.Exit(runCookieCLI(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "ytgrab",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	engine, err := transcoder.Probe(ctx, cfg.FFmpeg.Bin)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.engine_missing").
			Str("bin", cfg.FFmpeg.Bin).
			Msg("ffmpeg is required; install it or set YTGRAB_FFMPEG_BIN")
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Str("event", "telemetry.init_failed").Msg("continuing without tracing")
		tp = nil
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.ListenAddr).
		Str("ffmpeg", engine.Path).
		Str("ffmpeg_version", engine.Version).
		Str("fallback", cfg.Providers.FallbackBaseURL).
		Msg("starting ytgrab")

	d := buildDaemon(cfg, engine, tp)
	if err := d.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}
