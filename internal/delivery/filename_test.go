// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Plain Title", "Plain Title"},
		{`AC/DC: "Live" <Paris>?*|\`, "ACDC Live Paris"},
		{"tab\tand\nnewline", "tabandnewline"},
		{"  spaced out...  ", "spaced out"},
		{"", "video"},
		{"???", "video"},
		{"con", "video"},
		{"LPT1", "video"},
		{"café ♪", "café ♪"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in, "video"), "input %q", tt.in)
	}
}

func TestSanitizeFilenameCapsLengthOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 200)
	got := SanitizeFilename(long, "video")
	assert.LessOrEqual(t, len(got), maxFilenameBytes)
	assert.True(t, utf8.ValidString(got))
}

func TestContentDispositionRoundTrip(t *testing.T) {
	title := "café ♪"
	header := ContentDisposition(title, "mp4", "video")

	assert.True(t, strings.HasPrefix(header, `attachment; filename="caf .mp4"; filename*=UTF-8''`), header)

	_, encoded, ok := strings.Cut(header, "filename*=UTF-8''")
	require.True(t, ok)
	decoded, err := url.PathUnescape(encoded)
	require.NoError(t, err)
	assert.Equal(t, title+".mp4", decoded)
}

func TestContentDispositionAllNonASCIIUsesFallback(t *testing.T) {
	header := ContentDisposition("日本語タイトル", "mp3", "audio")
	assert.Contains(t, header, `filename="audio.mp3"`)
	assert.Contains(t, header, "filename*=UTF-8''%E6%97%A5")
}

func TestEncodeExtValue(t *testing.T) {
	assert.Equal(t, "a%20b%40c%3D%27%28%29.mp4", EncodeExtValue("a b@c='().mp4"))
	assert.Equal(t, "keep-._~!#$&+^`|", EncodeExtValue("keep-._~!#$&+^`|"))
}
