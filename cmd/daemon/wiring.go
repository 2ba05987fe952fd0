// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"golang.org/x/time/rate"

	"github.com/ManuGH/ytgrab/internal/api"
	"github.com/ManuGH/ytgrab/internal/api/middleware"
	"github.com/ManuGH/ytgrab/internal/config"
	"github.com/ManuGH/ytgrab/internal/cookiestore"
	"github.com/ManuGH/ytgrab/internal/daemon"
	"github.com/ManuGH/ytgrab/internal/delivery"
	xglog "github.com/ManuGH/ytgrab/internal/log"
	"github.com/ManuGH/ytgrab/internal/manifest"
	"github.com/ManuGH/ytgrab/internal/manifest/piped"
	"github.com/ManuGH/ytgrab/internal/manifest/youtube"
	"github.com/ManuGH/ytgrab/internal/platform/httpx"
	"github.com/ManuGH/ytgrab/internal/telemetry"
	"github.com/ManuGH/ytgrab/internal/transcoder"
)

func newCookieStore(cfg config.AppConfig) *cookiestore.Store {
	return cookiestore.New(cfg.Cookie.File, cookiestore.WithEnvKeys(cfg.Cookie.EnvKeys...))
}

// newAssembler builds the pipeline from configuration.
func newAssembler(cfg config.AppConfig, engine transcoder.Engine, cookies manifest.CredentialSupplier) *delivery.Assembler {
	p := cfg.Providers
	headers := httpx.BrowserHeaders(p.UserAgent, p.AcceptLanguage, p.Referer, p.Origin)

	chain := &manifest.Chain{
		Primary:     youtube.New(p.RequestTimeout, xglog.WithComponent("youtube")),
		Fallback:    piped.New(p.FallbackBaseURL, p.RequestTimeout),
		Headers:     headers,
		Credentials: cookies,
		Timeout:     p.RequestTimeout,
		Logger:      xglog.WithComponent("manifest"),
	}

	if p.FallbackRPS > 0 {
		chain.FallbackLimiter = rate.NewLimiter(rate.Limit(p.FallbackRPS), p.FallbackBurst)
	}

	return &delivery.Assembler{
		Manifests: chain,
		Fetcher:   delivery.NewHTTPFetcher(cfg.Fetch.ConnectTimeout, cfg.Fetch.IdleTimeout, headers),
		Engine: transcoder.New(transcoder.Config{
			Bin:          engine.Path,
			AudioBitrate: cfg.FFmpeg.AudioBitrate,
			KillGrace:    cfg.FFmpeg.KillGrace,
		}),
		Logger: xglog.WithComponent("delivery"),
	}
}

func buildDaemon(cfg config.AppConfig, engine transcoder.Engine, tp *telemetry.Provider) *daemon.Daemon {
	cookies := newCookieStore(cfg)

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.LogService
	}
	srv := api.New(api.Config{
		Deliverer: newAssembler(cfg, engine, cookies),
		Engine:    engine,
		Cookies:   cookies,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.Requests,
			WindowSize:   cfg.RateLimit.Window,
		},
		TracingService: tracing,
	})

	d := daemon.New(daemon.Config{
		ListenAddr:      cfg.ListenAddr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, srv.Handler())
	d.Go(cookies.Watch)
	if tp != nil {
		d.OnShutdown(tp.Shutdown)
	}
	return d
}
