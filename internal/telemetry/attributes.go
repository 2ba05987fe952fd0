// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the pipeline.
const (
	VideoIDKey = "media.video_id"
	TargetKey  = "media.target"

	// Manifest attributes
	ManifestProviderKey = "manifest.provider"
	ManifestStreamsKey  = "manifest.streams"

	// Selection attributes
	SelectionKindKey      = "selection.kind"
	SelectionContainerKey = "selection.container"
	SelectionHeightKey    = "selection.height"

	// Transcoding attributes
	TranscodeModeKey         = "transcode.mode"
	TranscodeVideoCodecKey   = "transcode.video_codec"
	TranscodeAudioCodecKey   = "transcode.audio_codec"
	TranscodeContainerKey    = "transcode.container"
	TranscodeInputsKey       = "transcode.inputs"
	TranscodeFailureCauseKey = "transcode.failure_reason"

	// Delivery attributes
	DeliveryStateKey = "delivery.state"
	DeliveryBytesKey = "delivery.bytes"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// TranscodeAttributes creates transcoding-related span attributes.
func TranscodeAttributes(mode, container, videoCodec, audioCodec string, inputs int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TranscodeModeKey, mode),
		attribute.String(TranscodeContainerKey, container),
		attribute.String(TranscodeVideoCodecKey, videoCodec),
		attribute.String(TranscodeAudioCodecKey, audioCodec),
		attribute.Int(TranscodeInputsKey, inputs),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
