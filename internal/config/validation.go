// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/ytgrab/internal/validate"
)

// Validate checks a resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("ListenAddr", cfg.ListenAddr)
	v.PositiveDuration("ShutdownTimeout", cfg.ShutdownTimeout)

	v.HTTPURL("Providers.FallbackBaseURL", cfg.Providers.FallbackBaseURL)
	v.PositiveDuration("Providers.RequestTimeout", cfg.Providers.RequestTimeout)
	if cfg.Providers.FallbackRPS > 0 {
		v.Range("Providers.FallbackBurst", cfg.Providers.FallbackBurst, 1, 1000)
	}

	v.PositiveDuration("Fetch.ConnectTimeout", cfg.Fetch.ConnectTimeout)
	v.PositiveDuration("Fetch.IdleTimeout", cfg.Fetch.IdleTimeout)

	v.NotEmpty("FFmpeg.Bin", cfg.FFmpeg.Bin)
	v.NotEmpty("FFmpeg.AudioBitrate", cfg.FFmpeg.AudioBitrate)
	v.PositiveDuration("FFmpeg.KillGrace", cfg.FFmpeg.KillGrace)

	if cfg.RateLimit.Requests > 0 {
		v.PositiveDuration("RateLimit.Window", cfg.RateLimit.Window)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
