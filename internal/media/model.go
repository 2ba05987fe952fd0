// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media holds the request-scoped data model shared by the acquisition
// and delivery pipeline: references, stream descriptors, manifests and selections.
package media

import (
	"strings"
	"time"
)

// VideoReference is a validated user input naming one video.
type VideoReference struct {
	RawInput string
	VideoID  string
}

// Container is the normalized encapsulation of a stream.
type Container string

const (
	ContainerMP4   Container = "mp4"
	ContainerWEBM  Container = "webm"
	ContainerM4A   Container = "m4a"
	ContainerOther Container = "other"
)

// ContainerFromMime derives a container from a MIME type such as
// `video/mp4; codecs="avc1.64001F"`.
func ContainerFromMime(mime string) Container {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mime)), ";")
	switch strings.TrimSpace(base) {
	case "video/mp4":
		return ContainerMP4
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ContainerM4A
	case "video/webm", "audio/webm":
		return ContainerWEBM
	}
	return ContainerOther
}

// StreamDescriptor is one retrievable encoded track. It is never mutated after creation.
type StreamDescriptor struct {
	SourceURL      string
	Container      Container
	MimeType       string
	IsAudioPresent bool
	IsVideoPresent bool
	BitrateBps     int64 // 0 when unknown
	HeightPx       int   // 0 when unknown
	QualityLabel   string
}

// IsMuxed reports whether the stream carries both audio and video.
func (s StreamDescriptor) IsMuxed() bool {
	return s.IsAudioPresent && s.IsVideoPresent
}

// Metadata is the preview subset of a manifest.
type Metadata struct {
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
	ThumbnailURL    string `json:"thumbnailUrl"`
}

// Manifest is the provider answer for one video. Owned by a single request.
type Manifest struct {
	Title            string
	DurationSeconds  int
	ThumbnailURL     string
	MuxedStreams     []StreamDescriptor
	VideoOnlyStreams []StreamDescriptor
	AudioOnlyStreams []StreamDescriptor
}

// Metadata returns the preview subset of the manifest.
func (m *Manifest) Metadata() Metadata {
	if m == nil {
		return Metadata{}
	}
	return Metadata{
		Title:           m.Title,
		DurationSeconds: m.DurationSeconds,
		ThumbnailURL:    m.ThumbnailURL,
	}
}

// StreamCount returns the number of streams across all three collections.
func (m *Manifest) StreamCount() int {
	if m == nil {
		return 0
	}
	return len(m.MuxedStreams) + len(m.VideoOnlyStreams) + len(m.AudioOnlyStreams)
}

// Add files a descriptor into the collection matching its track layout.
// Descriptors without a source URL or without any track are dropped.
func (m *Manifest) Add(s StreamDescriptor) bool {
	if s.SourceURL == "" {
		return false
	}
	switch {
	case s.IsMuxed():
		m.MuxedStreams = append(m.MuxedStreams, s)
	case s.IsVideoPresent:
		m.VideoOnlyStreams = append(m.VideoOnlyStreams, s)
	case s.IsAudioPresent:
		m.AudioOnlyStreams = append(m.AudioOnlyStreams, s)
	default:
		return false
	}
	return true
}

// DurationFrom converts a provider duration into whole seconds.
func DurationFrom(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// TargetKind is what the caller asked for.
type TargetKind string

const (
	TargetVideo TargetKind = "video"
	TargetAudio TargetKind = "audio"
)

// ParseTargetKind maps a routing token onto a TargetKind.
func ParseTargetKind(s string) (TargetKind, bool) {
	switch TargetKind(strings.ToLower(strings.TrimSpace(s))) {
	case TargetVideo:
		return TargetVideo, true
	case TargetAudio:
		return TargetAudio, true
	}
	return "", false
}

// OutputContainer is the container of the delivered file.
type OutputContainer string

const (
	OutputMP4 OutputContainer = "mp4"
	OutputMP3 OutputContainer = "mp3"
)

// Output returns the delivered container for the target kind.
func (k TargetKind) Output() OutputContainer {
	if k == TargetAudio {
		return OutputMP3
	}
	return OutputMP4
}

// ContentType is the response media type for the output container.
func (c OutputContainer) ContentType() string {
	if c == OutputMP3 {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// Extension is the filename extension without the dot.
func (c OutputContainer) Extension() string {
	return string(c)
}

// SelectionKind discriminates Selection.
type SelectionKind int

const (
	SelectionNone SelectionKind = iota
	SelectionMuxed
	SelectionPair
	SelectionAudio
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionMuxed:
		return "muxed"
	case SelectionPair:
		return "pair"
	case SelectionAudio:
		return "audio"
	default:
		return "none"
	}
}

// Selection is the outcome of stream selection.
//
//   - SelectionMuxed: Primary holds one stream with audio and video.
//   - SelectionPair:  Primary is video-only, Audio is audio-only.
//   - SelectionAudio: Primary is the single source for an audio target.
//   - SelectionNone:  nothing acceptable.
type Selection struct {
	Kind    SelectionKind
	Primary StreamDescriptor
	Audio   StreamDescriptor
}

// NoneFound reports whether the selection is empty.
func (s Selection) NoneFound() bool {
	return s.Kind == SelectionNone
}

// Sources returns the upstream streams the selection needs, in input order.
func (s Selection) Sources() []StreamDescriptor {
	switch s.Kind {
	case SelectionMuxed, SelectionAudio:
		return []StreamDescriptor{s.Primary}
	case SelectionPair:
		return []StreamDescriptor{s.Primary, s.Audio}
	}
	return nil
}
