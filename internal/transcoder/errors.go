// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import "strings"

// ClassifyFFmpegError maps engine stderr onto a failure-reason label. The
// newest matching line wins; an empty result means nothing recognisable.
func ClassifyFFmpegError(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if reason := classifyLine(lines[i]); reason != "" {
			return reason
		}
	}
	return ""
}

func classifyLine(line string) string {
	s := strings.ToLower(line)
	switch {
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection reset"),
		strings.Contains(s, "broken pipe"):
		return "stream_connect_reset"
	case strings.Contains(s, "unknown encoder"),
		strings.Contains(s, "encoder not found"):
		return "encoder_missing"
	case strings.Contains(s, "invalid data found when processing input"),
		strings.Contains(s, "moov atom not found"):
		return "invalid_data"
	case strings.Contains(s, "matches no streams"),
		strings.Contains(s, "output file #0 does not contain any stream"):
		return "no_stream"
	case strings.Contains(s, "input/output error"):
		return "io_error"
	}
	return ""
}
