// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cookiestore supplies the optional session cookie sent to the
// primary manifest provider. The cookie lives in a file (cookies.txt or a raw
// header) with environment variables as fallback.
package cookiestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytgrab/internal/log"
)

// DefaultPath is relative to the working directory.
const DefaultPath = "cookie/cookie.txt"

// DefaultEnvKeys are consulted in order when the file yields nothing.
var DefaultEnvKeys = []string{"YT_COOKIE_STORED", "YT_COOKIE"}

const defaultDebounce = 200 * time.Millisecond

// Source names where the current header came from.
type Source string

const (
	SourceNone Source = "none"
	SourceFile Source = "file"
	SourceEnv  Source = "env"
)

// Status describes the stored cookie without exposing it.
type Status struct {
	HasCookie bool
	Source    Source
	UpdatedAt time.Time
}

// Store caches the cookie header. Reads are lock-protected so the watcher can
// swap the value while requests are in flight.
type Store struct {
	path      string
	envKeys   []string
	lookupEnv func(string) (string, bool)
	logger    zerolog.Logger
	debounce  time.Duration

	mu      sync.RWMutex
	header  string
	source  Source
	modTime time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithEnvKeys replaces DefaultEnvKeys.
func WithEnvKeys(keys ...string) Option {
	return func(s *Store) { s.envKeys = keys }
}

// WithLookupEnv replaces os.LookupEnv, for tests.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(s *Store) { s.lookupEnv = fn }
}

// New creates a store for path and loads it once.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		path:      path,
		envKeys:   DefaultEnvKeys,
		lookupEnv: os.LookupEnv,
		logger:    log.WithComponent("cookiestore"),
		source:    SourceNone,
		debounce:  defaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldPath, s.path).Msg("cookie file unreadable, using environment")
	}
	return s
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

// GetStoredHeader returns the Cookie header value, if any.
func (s *Store) GetStoredHeader() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header, s.header != ""
}

// Status reports whether a cookie is stored and where it came from.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{HasCookie: s.header != "", Source: s.source, UpdatedAt: s.modTime}
}

// Reload re-reads the file, falling back to the environment when the file is
// missing or yields no cookie. A read error other than "not found" is returned
// after the fallback has been applied.
func (s *Store) Reload() error {
	header, modTime, err := s.readFile()
	source := SourceFile
	if header == "" {
		header, source, modTime = s.fromEnv(), SourceEnv, time.Time{}
		if header == "" {
			source = SourceNone
		}
	}

	s.mu.Lock()
	changed := s.header != header
	s.header, s.source, s.modTime = header, source, modTime
	s.mu.Unlock()

	if changed {
		s.logger.Info().
			Str(log.FieldEvent, "cookie.reloaded").
			Str("source", string(source)).
			Bool("has_cookie", header != "").
			Msg("cookie header updated")
	}
	return err
}

func (s *Store) readFile() (string, time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("read cookie file: %w", err)
	}
	var modTime time.Time
	if fi, err := os.Stat(s.path); err == nil {
		modTime = fi.ModTime()
	}
	return HeaderFromContent(string(data)), modTime, nil
}

func (s *Store) fromEnv() string {
	for _, key := range s.envKeys {
		if v, ok := s.lookupEnv(key); ok {
			if h := HeaderFromContent(v); h != "" {
				return h
			}
		}
	}
	return ""
}

// Save stores content (cookies.txt or a raw header) atomically and reloads.
func (s *Store) Save(content string) error {
	if HeaderFromContent(content) == "" {
		return errors.New("cookie content yields no cookies")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	if err := writeFile(s.path, []byte(content)); err != nil {
		return err
	}
	return s.Reload()
}

// Clear deletes the cookie file and reloads, leaving only environment values.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cookie file: %w", err)
	}
	return s.Reload()
}

// Watch reloads the store whenever the cookie file changes, until ctx is done.
// The parent directory is watched so atomic replacements and deletions are
// seen as well.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch cookie dir: %w", err)
	}
	s.logger.Info().Str(log.FieldEvent, "cookie.watch_started").Str(log.FieldPath, s.path).Msg("watching cookie file")

	target := filepath.Clean(s.path)
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			timer.Reset(s.debounce)
		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logger.Error().Err(err).Str(log.FieldEvent, "cookie.reload_failed").Msg("cookie reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Str(log.FieldEvent, "cookie.watch_error").Msg("cookie watcher error")
		}
	}
}
