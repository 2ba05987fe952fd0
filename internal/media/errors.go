// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrInvalidReference    = errors.New("invalid video reference")
	ErrManifestUnavailable = errors.New("manifest unavailable")
	ErrNoStreamsFound      = errors.New("no usable streams found")
	ErrTranscodeFailure    = errors.New("transcode failed")
	ErrUpstreamFetch       = errors.New("upstream fetch failed")
	ErrClientDisconnected  = errors.New("client disconnected")
)

// StatusClientClosedRequest is the non-standard status used for logging disconnects.
const StatusClientClosedRequest = 499

// Error wraps a taxonomy sentinel with pipeline context.
type Error struct {
	Kind     error
	Op       string
	Provider string
	Status   int // upstream HTTP status, if any
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Provider != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Provider)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap builds an *Error of the given kind.
func Wrap(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the taxonomy sentinel carried by err, or nil.
func KindOf(err error) error {
	for _, k := range []error{
		ErrInvalidReference,
		ErrManifestUnavailable,
		ErrNoStreamsFound,
		ErrTranscodeFailure,
		ErrUpstreamFetch,
		ErrClientDisconnected,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Reason returns a short stable label for metrics.
func Reason(err error) string {
	switch KindOf(err) {
	case ErrInvalidReference:
		return "invalid_reference"
	case ErrManifestUnavailable:
		return "manifest_unavailable"
	case ErrNoStreamsFound:
		return "no_streams_found"
	case ErrTranscodeFailure:
		return "transcode_failure"
	case ErrUpstreamFetch:
		return "upstream_fetch_failure"
	case ErrClientDisconnected:
		return "client_disconnected"
	}
	if err == nil {
		return "none"
	}
	return "internal"
}

// HTTPStatus maps an error onto the response status used before streaming starts.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrInvalidReference:
		return http.StatusBadRequest
	case ErrManifestUnavailable, ErrUpstreamFetch:
		return http.StatusBadGateway
	case ErrNoStreamsFound:
		return http.StatusUnprocessableEntity
	case ErrClientDisconnected:
		return StatusClientClosedRequest
	}
	return http.StatusInternalServerError
}
