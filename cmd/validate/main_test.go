// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCLI(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	tests := []struct {
		name       string
		args       []string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "valid minimal config",
			args:       []string{"-f", write("ok.yaml", "listen: \":8080\"\n")},
			wantExit:   0,
			wantStdout: "is valid",
		},
		{
			name:       "unknown key",
			args:       []string{"--file", write("unknown.yaml", "listen: \":8080\"\nlegacy: 1\n")},
			wantExit:   1,
			wantStderr: "unknown config field",
		},
		{
			name:       "bad fallback url",
			args:       []string{"-f", write("bad.yaml", "providers:\n  fallbackBaseURL: \"ftp://piped\"\n")},
			wantExit:   1,
			wantStderr: "Providers.FallbackBaseURL",
		},
		{
			name:       "missing flag",
			args:       nil,
			wantExit:   2,
			wantStderr: "--file is required",
		},
		{
			name:       "version",
			args:       []string{"-version"},
			wantExit:   0,
			wantStdout: "commit:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantExit, code)
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}
