// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package delivery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/transcoder"
)

// The pair path through the real orchestrator, with a shell script standing in
// for ffmpeg that emits stdin followed by fd 3.
func TestDeliverPairThroughOrchestrator(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\ncat; cat <&3\n"), 0o755))

	h := newHarness(&fakeResolver{m: pairManifest("p")}, &fakeResolver{})
	h.fetcher.payloads["https://cdn/p/v1080"] = []byte("[moov+video]")
	h.fetcher.payloads["https://cdn/p/a"] = []byte("[audio]")
	h.asm.Engine = transcoder.New(transcoder.Config{Bin: bin})

	out := newRecordingOutbound()
	require.NoError(t, h.asm.Deliver(context.Background(), watchURL, media.TargetVideo, out))
	assert.Equal(t, "[moov+video][audio]", out.body.String())
	assert.Equal(t, 1, out.closes)
	assert.True(t, h.fetcher.allClosed())
}
