// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package videoref

import (
	"regexp"
	"testing"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccepted(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ":  "dQw4w9WgXcQ",
		"http://m.youtube.com/watch?v=dQw4w9WgXcQ&t=10s":         "dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc":                    "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":             "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1":   "dQw4w9WgXcQ",
		"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ":     "dQw4w9WgXcQ",
		"  dQw4w9WgXcQ  ":                                        "dQw4w9WgXcQ",
	}
	for raw, want := range cases {
		ref, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, ref.VideoID, raw)
		assert.Equal(t, raw, ref.RawInput)
	}
}

func TestParseRejected(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not a url",
		"ftp://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://vimeo.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=short",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ<script>",
		"https://youtu.be/",
		"https://example.com/watch?v=abc123",
	} {
		_, err := Parse(raw)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, media.ErrInvalidReference, raw)
	}
}

func TestCustomGrammar(t *testing.T) {
	g := Grammar{Hosts: []string{"example.com"}, IDPattern: regexp.MustCompile(`^[a-z0-9]{3,32}$`)}

	ref, err := g.Parse("https://example.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", ref.VideoID)

	_, err = g.Parse("abc123")
	assert.ErrorIs(t, err, media.ErrInvalidReference, "bare ids disabled")
}
