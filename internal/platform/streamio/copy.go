// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package streamio moves media bytes chunk by chunk between a source and a
// sink, checking for cancellation between chunks.
package streamio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
)

// ChunkSize bounds the memory held per copy.
const ChunkSize = 32 * 1024

var (
	// ErrSourceRead marks a failure on the reading side.
	ErrSourceRead = errors.New("source read failed")
	// ErrSinkWrite marks a failure on the writing side.
	ErrSinkWrite = errors.New("sink write failed")
)

type flusher interface {
	Flush()
}

// Copy copies src to dst until EOF, an error, or ctx is done. Each chunk is
// flushed if dst supports it so the first bytes reach the client early.
// Errors wrap ErrSourceRead or ErrSinkWrite; cancellation returns the
// context's cause.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	f, canFlush := dst.(flusher)

	var written int64
	for {
		if ctx.Err() != nil {
			return written, context.Cause(ctx)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err == nil && w != n {
				err = io.ErrShortWrite
			}
			if err != nil {
				return written, fmt.Errorf("%w: %w", ErrSinkWrite, err)
			}
			if canFlush {
				f.Flush()
			}
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF):
			return written, nil
		default:
			if ctx.Err() != nil {
				return written, context.Cause(ctx)
			}
			return written, fmt.Errorf("%w: %w", ErrSourceRead, readErr)
		}
	}
}

// IsDisconnect reports whether err looks like the peer going away rather than
// a local fault.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, context.Canceled) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "write: connection timed out") ||
		strings.Contains(s, "i/o timeout")
}
