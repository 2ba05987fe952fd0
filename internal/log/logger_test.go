// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test", Version: "v0"})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithVideoID(ctx, "abc123")

	l := WithComponentFromContext(ctx, "delivery")
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "test", entry["service"])
	require.Equal(t, "v0", entry["version"])
	require.Equal(t, "delivery", entry[FieldComponent])
	require.Equal(t, "req-1", entry[FieldRequestID])
	require.Equal(t, "abc123", entry[FieldVideoID])
}

func TestContextAccessorsNil(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	require.Empty(t, RequestIDFromContext(nil))
	//nolint:staticcheck
	require.Empty(t, VideoIDFromContext(nil))
}
