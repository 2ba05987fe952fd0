// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var ErrEngineUnavailable = errors.New("transcode engine unavailable")

const probeTimeout = 5 * time.Second

// Engine describes the resolved engine binary.
type Engine struct {
	Path    string
	Version string
}

// Probe resolves bin on PATH and runs "-version" against it. The daemon
// refuses to start when this fails.
func Probe(ctx context.Context, bin string) (Engine, error) {
	if strings.TrimSpace(bin) == "" {
		return Engine{}, fmt.Errorf("%w: empty binary name", ErrEngineUnavailable)
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return Engine{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-version") // #nosec G204 -- operator-configured engine path
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Engine{}, fmt.Errorf("%w: %s -version: %w (%s)", ErrEngineUnavailable, path, err, strings.TrimSpace(stderr.String()))
	}

	return Engine{Path: path, Version: parseVersion(out)}, nil
}

// parseVersion extracts "N.N" from "ffmpeg version N.N Copyright ...".
func parseVersion(out []byte) string {
	first, _, _ := bytes.Cut(out, []byte("\n"))
	fields := strings.Fields(string(first))
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(string(first))
}
