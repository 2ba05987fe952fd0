// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytgrab/internal/log"
)

// State is a step of one delivery.
type State string

const (
	StateIdle              State = "idle"
	StateValidating        State = "validating"
	StateResolvingPrimary  State = "resolving_primary"
	StateResolvingFallback State = "resolving_fallback"
	StateSelecting         State = "selecting"
	StateTranscoding       State = "transcoding"
	StateStreaming         State = "streaming"
	StateClosed            State = "closed"
	StateAborted           State = "aborted"
)

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateAborted
}

// tracker records transitions for one delivery. The engine's drain goroutine
// moves it to streaming, so it is locked.
type tracker struct {
	mu      sync.Mutex
	state   State
	history []State
	logger  zerolog.Logger
}

func newTracker(logger zerolog.Logger) *tracker {
	return &tracker{state: StateIdle, logger: logger}
}

func (t *tracker) to(next State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == next || t.state.Terminal() {
		return
	}
	t.logger.Debug().
		Str(log.FieldEvent, "delivery.state").
		Str(log.FieldOldState, string(t.state)).
		Str(log.FieldNewState, string(next)).
		Msg("delivery state changed")
	t.state = next
	t.history = append(t.history, next)
}

func (t *tracker) current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *tracker) path() []State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]State(nil), t.history...)
}
