// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cookiestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const netscapeFile = "# Netscape HTTP Cookie File\n" +
	"# comment line\n" +
	"\n" +
	".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSID\tfirst\n" +
	"#HttpOnly_.youtube.com\tTRUE\t/\tTRUE\t1999999999\tHSID\thttp-only\n" +
	".youtube.com\tTRUE\t/\tTRUE\t1999999999\tPREF\tf6=8\tz\n" +
	".youtube.com\tTRUE\t/\tTRUE\t1999999999\tSID\tsecond\n" +
	"too\tfew\tfields\n"

func noEnv(string) (string, bool) { return "", false }

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseCookiesTxt(t *testing.T) {
	got := ParseCookiesTxt(netscapeFile)
	assert.Equal(t, "SID=second; HSID=http-only; PREF=f6=8\tz", got)
}

func TestParseCookiesTxtWhitespaceSeparated(t *testing.T) {
	got := ParseCookiesTxt(".youtube.com TRUE / TRUE 0 LOGIN_INFO a b\n")
	assert.Equal(t, "LOGIN_INFO=a b", got)
}

func TestHeaderFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "  \n", want: ""},
		{name: "raw header", content: "  SID=abc; HSID=def \n", want: "SID=abc; HSID=def"},
		{name: "netscape marker without rows", content: "# Netscape HTTP Cookie File\n", want: ""},
		{name: "cookies txt", content: netscapeFile, want: "SID=second; HSID=http-only; PREF=f6=8\tz"},
		{name: "comments only", content: "# only comments\n\n  # another\n", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeaderFromContent(tt.content))
		})
	}
}

func TestStoreReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.txt")
	require.NoError(t, os.WriteFile(path, []byte("SID=file"), 0o600))

	s := New(path, WithLookupEnv(envOf(map[string]string{"YT_COOKIE": "SID=env"})))
	h, ok := s.GetStoredHeader()
	require.True(t, ok)
	assert.Equal(t, "SID=file", h)
	st := s.Status()
	assert.True(t, st.HasCookie)
	assert.Equal(t, SourceFile, st.Source)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestStoreFallsBackToEnvInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "cookie.txt")
	s := New(path, WithLookupEnv(envOf(map[string]string{
		"YT_COOKIE_STORED": "SID=stored",
		"YT_COOKIE":        "SID=plain",
	})))
	h, ok := s.GetStoredHeader()
	require.True(t, ok)
	assert.Equal(t, "SID=stored", h)
	assert.Equal(t, SourceEnv, s.Status().Source)

	s = New(path, WithEnvKeys("OTHER"), WithLookupEnv(envOf(map[string]string{"YT_COOKIE": "SID=plain"})))
	_, ok = s.GetStoredHeader()
	assert.False(t, ok)
	assert.Equal(t, SourceNone, s.Status().Source)
}

func TestStoreSaveAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cookie.txt")
	s := New(path, WithLookupEnv(noEnv))

	require.NoError(t, s.Save(netscapeFile))
	h, ok := s.GetStoredHeader()
	require.True(t, ok)
	assert.Equal(t, "SID=second; HSID=http-only; PREF=f6=8\tz", h)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, netscapeFile, string(data))

	require.Error(t, s.Save("# only comments\n"))
	h, ok = s.GetStoredHeader()
	require.True(t, ok)
	assert.Equal(t, "SID=second; HSID=http-only; PREF=f6=8\tz", h)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, netscapeFile, string(data))

	require.NoError(t, s.Clear())
	_, ok = s.GetStoredHeader()
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Clear())
}

func TestStoreWatchPicksUpChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "cookie.txt")
	s := New(path, WithLookupEnv(noEnv))
	s.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Keep writing until the watcher has registered the directory.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("SID=watched"), 0o600)
		h, _ := s.GetStoredHeader()
		return h == "SID=watched"
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		_, ok := s.GetStoredHeader()
		return !ok
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
