// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapsSentinelAndCause(t *testing.T) {
	err := &Error{Kind: ErrManifestUnavailable, Op: "resolve", Provider: "piped", Status: 503, Err: context.DeadlineExceeded}

	require.ErrorIs(t, err, ErrManifestUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "resolve: manifest unavailable [piped] (HTTP 503): context deadline exceeded", err.Error())
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		reason string
	}{
		{Wrap(ErrInvalidReference, "parse", nil), http.StatusBadRequest, "invalid_reference"},
		{Wrap(ErrManifestUnavailable, "resolve", nil), http.StatusBadGateway, "manifest_unavailable"},
		{Wrap(ErrNoStreamsFound, "select", nil), http.StatusUnprocessableEntity, "no_streams_found"},
		{Wrap(ErrTranscodeFailure, "transcode", nil), http.StatusInternalServerError, "transcode_failure"},
		{Wrap(ErrUpstreamFetch, "fetch", nil), http.StatusBadGateway, "upstream_fetch_failure"},
		{Wrap(ErrClientDisconnected, "stream", nil), StatusClientClosedRequest, "client_disconnected"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
		assert.Equal(t, tc.reason, Reason(tc.err), tc.err.Error())
	}
}
