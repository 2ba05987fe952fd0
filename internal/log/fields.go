// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldVideoID   = "video_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldTarget    = "target"
	FieldSelection = "selection"

	// Media / stream fields
	FieldContainer = "container"
	FieldMimeType  = "mime_type"
	FieldBitrate   = "bitrate_bps"
	FieldHeight    = "height_px"
	FieldCodec     = "codec"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldReason   = "reason"

	// Path / URL fields
	FieldBaseURL = "base_url"
	FieldPath    = "path"

	// Transfer fields
	FieldBytes = "bytes"
)
