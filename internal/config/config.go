// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/ytgrab/internal/cookiestore"
	"github.com/ManuGH/ytgrab/internal/manifest/piped"
	"github.com/ManuGH/ytgrab/internal/platform/httpx"
	"github.com/ManuGH/ytgrab/internal/transcoder"
)

// AppConfig is the fully resolved daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr      string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	LogLevel        string        `yaml:"logLevel"`
	LogService      string        `yaml:"logService"`

	Providers ProvidersConfig `yaml:"providers"`
	Fetch     FetchConfig     `yaml:"fetch"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Cookie    CookieConfig    `yaml:"cookie"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProvidersConfig controls the manifest providers and the headers sent to them.
type ProvidersConfig struct {
	FallbackBaseURL string        `yaml:"fallbackBaseURL"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// FallbackRPS throttles fallback queries; zero or negative disables.
	FallbackRPS    float64 `yaml:"fallbackRPS"`
	FallbackBurst  int     `yaml:"fallbackBurst"`
	UserAgent      string  `yaml:"userAgent"`
	AcceptLanguage string  `yaml:"acceptLanguage"`
	Referer        string  `yaml:"referer"`
	Origin         string  `yaml:"origin"`
}

// FetchConfig bounds upstream media fetches.
type FetchConfig struct {
	// ConnectTimeout bounds dialing and waiting for response headers.
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	// IdleTimeout aborts a body that delivers no bytes for this long.
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// FFmpegConfig configures the external engine.
type FFmpegConfig struct {
	Bin          string        `yaml:"bin"`
	AudioBitrate string        `yaml:"audioBitrate"`
	KillGrace    time.Duration `yaml:"killGrace"`
}

// CookieConfig locates the optional session cookie.
type CookieConfig struct {
	File    string   `yaml:"file"`
	EnvKeys []string `yaml:"envKeys"`
}

// RateLimitConfig is a per-client-IP limit on the API routes. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:      ":3000",
		ShutdownTimeout: 15 * time.Second,
		LogLevel:        "info",
		LogService:      "ytgrab",
		Providers: ProvidersConfig{
			FallbackBaseURL: piped.DefaultBaseURL,
			RequestTimeout:  20 * time.Second,
			FallbackRPS:     5,
			FallbackBurst:   10,
			UserAgent:       httpx.DefaultUserAgent,
			AcceptLanguage:  httpx.DefaultAcceptLanguage,
			Referer:         httpx.DefaultReferer,
			Origin:          httpx.DefaultOrigin,
		},
		Fetch: FetchConfig{
			ConnectTimeout: 15 * time.Second,
			IdleTimeout:    30 * time.Second,
		},
		FFmpeg: FFmpegConfig{
			Bin:          "ffmpeg",
			AudioBitrate: transcoder.DefaultAudioBitrate,
			KillGrace:    2 * time.Second,
		},
		Cookie: CookieConfig{
			File:    cookiestore.DefaultPath,
			EnvKeys: append([]string(nil), cookiestore.DefaultEnvKeys...),
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}
