// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys read by the loader.
const (
	EnvListen             = "YTGRAB_LISTEN"
	EnvShutdownTimeout    = "YTGRAB_SHUTDOWN_TIMEOUT"
	EnvLogLevel           = "YTGRAB_LOG_LEVEL"
	EnvPipedInstance      = "YTGRAB_PIPED_INSTANCE"
	EnvPipedInstanceAlias = "PIPED_INSTANCE"
	EnvRequestTimeout     = "YTGRAB_REQUEST_TIMEOUT"
	EnvFallbackRPS        = "YTGRAB_FALLBACK_RPS"
	EnvFallbackBurst      = "YTGRAB_FALLBACK_BURST"
	EnvUserAgent          = "YTGRAB_USER_AGENT"
	EnvAcceptLanguage     = "YTGRAB_ACCEPT_LANGUAGE"
	EnvFetchConnect       = "YTGRAB_FETCH_CONNECT_TIMEOUT"
	EnvFetchIdle          = "YTGRAB_FETCH_IDLE_TIMEOUT"
	EnvFFmpegBin          = "YTGRAB_FFMPEG_BIN"
	EnvAudioBitrate       = "YTGRAB_AUDIO_BITRATE"
	EnvKillGrace          = "YTGRAB_FFMPEG_KILL_GRACE"
	EnvCookieFile         = "YTGRAB_COOKIE_FILE"
	EnvRateLimitRequests  = "YTGRAB_RATELIMIT_REQUESTS"
	EnvRateLimitWindow    = "YTGRAB_RATELIMIT_WINDOW"
	EnvOTelEnabled        = "YTGRAB_OTEL_ENABLED"
	EnvOTelExporter       = "YTGRAB_OTEL_EXPORTER"
	EnvOTelEndpoint       = "YTGRAB_OTEL_ENDPOINT"
	EnvOTelSamplingRate   = "YTGRAB_OTEL_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load resolves the configuration: defaults, then the strict YAML file, then
// environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.mergeEnvConfig(&cfg); err != nil {
		return cfg, err
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file on top of cfg. Keys absent from the file keep
// their current values.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) error {
	cfg.ListenAddr = l.envString(EnvListen, cfg.ListenAddr)
	cfg.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.ShutdownTimeout)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	fallback, err := l.aliased(EnvPipedInstance, EnvPipedInstanceAlias)
	if err != nil {
		return err
	}
	cfg.Providers.FallbackBaseURL = l.envString(fallback, cfg.Providers.FallbackBaseURL)
	cfg.Providers.RequestTimeout = l.envDuration(EnvRequestTimeout, cfg.Providers.RequestTimeout)
	cfg.Providers.FallbackRPS = l.envFloat(EnvFallbackRPS, cfg.Providers.FallbackRPS)
	cfg.Providers.FallbackBurst = l.envInt(EnvFallbackBurst, cfg.Providers.FallbackBurst)
	cfg.Providers.UserAgent = l.envString(EnvUserAgent, cfg.Providers.UserAgent)
	cfg.Providers.AcceptLanguage = l.envString(EnvAcceptLanguage, cfg.Providers.AcceptLanguage)

	cfg.Fetch.ConnectTimeout = l.envDuration(EnvFetchConnect, cfg.Fetch.ConnectTimeout)
	cfg.Fetch.IdleTimeout = l.envDuration(EnvFetchIdle, cfg.Fetch.IdleTimeout)

	cfg.FFmpeg.Bin = l.envString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.AudioBitrate = l.envString(EnvAudioBitrate, cfg.FFmpeg.AudioBitrate)
	cfg.FFmpeg.KillGrace = l.envDuration(EnvKillGrace, cfg.FFmpeg.KillGrace)

	cfg.Cookie.File = l.envString(EnvCookieFile, cfg.Cookie.File)

	cfg.RateLimit.Requests = l.envInt(EnvRateLimitRequests, cfg.RateLimit.Requests)
	cfg.RateLimit.Window = l.envDuration(EnvRateLimitWindow, cfg.RateLimit.Window)

	cfg.Telemetry.Enabled = l.envBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvOTelSamplingRate, cfg.Telemetry.SamplingRate)
	return nil
}

// aliased picks which of key or alias to read. Both set to different values
// is an error; key wins otherwise.
func (l *Loader) aliased(key, alias string) (string, error) {
	l.ConsumedEnvKeys[alias] = struct{}{}
	kv, kok := os.LookupEnv(key)
	av, aok := os.LookupEnv(alias)
	switch {
	case kok && aok && kv != av:
		return "", fmt.Errorf("%w: %s and %s differ", ErrAliasConflict, key, alias)
	case !kok && aok:
		return alias, nil
	}
	return key, nil
}
