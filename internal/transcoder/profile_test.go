// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytgrab/internal/media"
)

func TestProfileFor(t *testing.T) {
	stream := media.StreamDescriptor{SourceURL: "u", IsAudioPresent: true, IsVideoPresent: true}

	tests := []struct {
		name   string
		sel    media.Selection
		target media.TargetKind
		mode   Mode
		inputs int
	}{
		{"muxed video proxies", media.Selection{Kind: media.SelectionMuxed, Primary: stream}, media.TargetVideo, ModePassthrough, 1},
		{"pair muxes", media.Selection{Kind: media.SelectionPair, Primary: stream, Audio: stream}, media.TargetVideo, ModeMux, 2},
		{"audio transcodes", media.Selection{Kind: media.SelectionAudio, Primary: stream}, media.TargetAudio, ModeAudio, 1},
		{"muxed audio transcodes", media.Selection{Kind: media.SelectionMuxed, Primary: stream}, media.TargetAudio, ModeAudio, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ProfileFor(tt.sel, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, p.Mode)
			assert.Equal(t, tt.inputs, p.Inputs())
			assert.Equal(t, tt.target.Output(), p.Container)
		})
	}

	_, err := ProfileFor(media.Selection{}, media.TargetVideo)
	assert.ErrorIs(t, err, media.ErrNoStreamsFound)

	_, err = ProfileFor(media.Selection{Kind: media.SelectionAudio, Primary: stream}, media.TargetVideo)
	assert.ErrorIs(t, err, ErrInvalidJob)
}

func TestBuildArgsMuxCopiesVideo(t *testing.T) {
	args, err := BuildArgs(Profile{Mode: ModeMux, Container: media.OutputMP4, VideoCodec: "copy", AudioCodec: "aac"}, "")
	require.NoError(t, err)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-i pipe:0 -i pipe:3")
	assert.Contains(t, joined, "-map 0:v:0 -map 1:a:0")
	assert.Contains(t, joined, "-c:v copy -c:a aac -b:a 192k")
	assert.Contains(t, joined, "-f mp4 pipe:1")
}

func TestBuildArgsAudioDropsVideo(t *testing.T) {
	args, err := BuildArgs(Profile{Mode: ModeAudio, Container: media.OutputMP3, AudioCodec: "libmp3lame"}, "256k")
	require.NoError(t, err)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-vn -c:a libmp3lame -b:a 256k -f mp3 pipe:1")
	assert.NotContains(t, joined, "pipe:3")

	_, err = BuildArgs(Profile{Mode: ModePassthrough}, "")
	assert.ErrorIs(t, err, ErrInvalidJob)
}
