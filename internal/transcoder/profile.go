// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"errors"
	"fmt"

	"github.com/ManuGH/ytgrab/internal/media"
)

// Mode is the work the engine does for one delivery.
type Mode string

const (
	// ModePassthrough proxies a muxed stream as is; no engine is involved.
	ModePassthrough Mode = "passthrough"
	// ModeAudio re-encodes the audio of one input into MP3.
	ModeAudio Mode = "audio"
	// ModeMux copies video from the first input and re-encodes audio from the
	// second into fragmented MP4.
	ModeMux Mode = "mux"
)

const (
	DefaultAudioBitrate = "192k"

	codecCopy    = "copy"
	codecAAC     = "aac"
	codecMP3Lame = "libmp3lame"
)

var ErrInvalidJob = errors.New("invalid transcode job")

// Profile is the (container, video codec, audio codec) triple for one run.
type Profile struct {
	Mode       Mode
	Container  media.OutputContainer
	VideoCodec string
	AudioCodec string
}

// Inputs is the number of upstream byte streams the profile consumes.
func (p Profile) Inputs() int {
	if p.Mode == ModeMux {
		return 2
	}
	return 1
}

// NeedsEngine reports whether the external engine must run.
func (p Profile) NeedsEngine() bool {
	return p.Mode == ModeAudio || p.Mode == ModeMux
}

// ProfileFor decides how a selection is turned into the target output.
func ProfileFor(sel media.Selection, target media.TargetKind) (Profile, error) {
	if sel.NoneFound() {
		return Profile{}, media.Wrap(media.ErrNoStreamsFound, "transcoder.profile", nil)
	}

	switch target {
	case media.TargetAudio:
		if sel.Kind == media.SelectionAudio || sel.Kind == media.SelectionMuxed {
			return Profile{Mode: ModeAudio, Container: media.OutputMP3, AudioCodec: codecMP3Lame}, nil
		}
	case media.TargetVideo:
		switch sel.Kind {
		case media.SelectionMuxed:
			return Profile{Mode: ModePassthrough, Container: media.OutputMP4, VideoCodec: codecCopy, AudioCodec: codecCopy}, nil
		case media.SelectionPair:
			return Profile{Mode: ModeMux, Container: media.OutputMP4, VideoCodec: codecCopy, AudioCodec: codecAAC}, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %s selection for %s target", ErrInvalidJob, sel.Kind, target)
}

// BuildArgs renders the engine command line. Input 0 is read from stdin,
// input 1 from file descriptor 3; output goes to stdout.
func BuildArgs(p Profile, audioBitrate string) ([]string, error) {
	if audioBitrate == "" {
		audioBitrate = DefaultAudioBitrate
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0"}

	switch p.Mode {
	case ModeAudio:
		args = append(args,
			"-vn",
			"-c:a", p.AudioCodec,
			"-b:a", audioBitrate,
			"-f", "mp3",
		)
	case ModeMux:
		args = append(args,
			"-i", "pipe:3",
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:v", p.VideoCodec,
			"-c:a", p.AudioCodec,
			"-b:a", audioBitrate,
			"-movflags", "frag_keyframe+empty_moov+default_base_moof",
			"-f", "mp4",
		)
	default:
		return nil, fmt.Errorf("%w: mode %q has no engine arguments", ErrInvalidJob, p.Mode)
	}
	return append(args, "pipe:1"), nil
}
