// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package selector picks the streams to deliver from a manifest.
//
// Selection is a pure function of the manifest and the target: equal inputs
// always give equal outputs. Equal scores resolve to the candidate listed first
// in the manifest.
package selector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ManuGH/ytgrab/internal/media"
)

var qualityHeight = regexp.MustCompile(`(?i)(\d{3,4})p`)

// HeightScore maps an "NNNp" quality label to height*100, or 0.
func HeightScore(label string) int64 {
	m := qualityHeight.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	h, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return h * 100
}

// VideoScore is bitrate plus the height score of the quality label.
func VideoScore(s media.StreamDescriptor) int64 {
	return bitrate(s) + HeightScore(s.QualityLabel)
}

// AudioScore is the bitrate alone.
func AudioScore(s media.StreamDescriptor) int64 {
	return bitrate(s)
}

// InMP4Family reports whether s belongs to the MP4 container family.
func InMP4Family(s media.StreamDescriptor) bool {
	switch s.Container {
	case media.ContainerMP4, media.ContainerM4A:
		return true
	}
	return strings.Contains(strings.ToLower(s.MimeType), "mp4")
}

// Select dispatches on the target kind.
func Select(m *media.Manifest, target media.TargetKind) media.Selection {
	if target == media.TargetAudio {
		return SelectAudio(m)
	}
	return SelectVideo(m)
}

// SelectVideo prefers the best muxed MP4-family stream, then the best
// video-only + audio-only MP4-family pair.
func SelectVideo(m *media.Manifest) media.Selection {
	if m == nil {
		return media.Selection{}
	}

	muxed := filter(m.MuxedStreams, func(s media.StreamDescriptor) bool {
		return s.IsMuxed() && InMP4Family(s)
	})
	if i := best(muxed, VideoScore); i >= 0 {
		return media.Selection{Kind: media.SelectionMuxed, Primary: muxed[i]}
	}

	videos := filter(m.VideoOnlyStreams, func(s media.StreamDescriptor) bool {
		return s.IsVideoPresent && !s.IsAudioPresent && InMP4Family(s)
	})
	audios := filter(m.AudioOnlyStreams, func(s media.StreamDescriptor) bool {
		return s.IsAudioPresent && !s.IsVideoPresent && InMP4Family(s)
	})
	vi, ai := best(videos, VideoScore), best(audios, AudioScore)
	if vi >= 0 && ai >= 0 {
		return media.Selection{Kind: media.SelectionPair, Primary: videos[vi], Audio: audios[ai]}
	}
	return media.Selection{}
}

// SelectAudio picks one source for an audio-only delivery. Audio-only streams
// are preferred over muxed ones; within them the highest-bitrate MP4-family
// stream wins, and without any MP4-family stream the first one listed is used.
func SelectAudio(m *media.Manifest) media.Selection {
	if m == nil {
		return media.Selection{}
	}

	candidates := filter(m.AudioOnlyStreams, func(s media.StreamDescriptor) bool {
		return s.IsAudioPresent
	})
	if len(candidates) == 0 {
		candidates = filter(m.MuxedStreams, func(s media.StreamDescriptor) bool {
			return s.IsAudioPresent
		})
	}
	if len(candidates) == 0 {
		return media.Selection{}
	}

	preferred := filter(candidates, InMP4Family)
	if i := best(preferred, AudioScore); i >= 0 {
		return media.Selection{Kind: media.SelectionAudio, Primary: preferred[i]}
	}
	return media.Selection{Kind: media.SelectionAudio, Primary: candidates[0]}
}

// best returns the index of the highest score; the earliest index wins ties.
func best(streams []media.StreamDescriptor, score func(media.StreamDescriptor) int64) int {
	idx := -1
	var top int64
	for i, s := range streams {
		if sc := score(s); idx < 0 || sc > top {
			idx, top = i, sc
		}
	}
	return idx
}

func filter(streams []media.StreamDescriptor, keep func(media.StreamDescriptor) bool) []media.StreamDescriptor {
	var out []media.StreamDescriptor
	for _, s := range streams {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func bitrate(s media.StreamDescriptor) int64 {
	if s.BitrateBps < 0 {
		return 0
	}
	return s.BitrateBps
}
