// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/ManuGH/ytgrab/internal/media"
)

// Outbound is the response sink of one delivery. Deliver calls exactly one of
// Close or Abort, exactly once.
type Outbound interface {
	Header() http.Header
	WriteHeader(status int)
	Write(p []byte) (int, error)
	// Close finishes a successful response.
	Close() error
	// Abort ends the response as failed. Before the first byte it becomes an
	// error response; after it the stream must be cut so the client sees an
	// incomplete download.
	Abort(err error)
}

// ErrorMessage is the client-facing text for a pre-stream failure.
func ErrorMessage(err error) string {
	switch media.KindOf(err) {
	case media.ErrInvalidReference:
		return "Invalid URL"
	case media.ErrManifestUnavailable:
		return "Failed to fetch video info"
	case media.ErrNoStreamsFound:
		return "No suitable stream found"
	case media.ErrUpstreamFetch:
		return "Failed to fetch media stream"
	case media.ErrTranscodeFailure:
		return "Failed to process media"
	case media.ErrClientDisconnected:
		return "Client closed request"
	}
	return "Internal error"
}

// ResponseOutbound adapts an http.ResponseWriter. After Deliver returns, the
// handler must call Finish so a mid-stream abort tears down the connection.
type ResponseOutbound struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu        sync.Mutex
	committed bool
	cut       bool
	finalized int
}

// NewResponseOutbound wraps w.
func NewResponseOutbound(w http.ResponseWriter) *ResponseOutbound {
	return &ResponseOutbound{w: w, rc: http.NewResponseController(w)}
}

func (o *ResponseOutbound) Header() http.Header { return o.w.Header() }

func (o *ResponseOutbound) WriteHeader(status int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commitLocked(status)
}

func (o *ResponseOutbound) commitLocked(status int) {
	if o.committed {
		return
	}
	o.committed = true
	o.w.WriteHeader(status)
}

func (o *ResponseOutbound) Write(p []byte) (int, error) {
	o.mu.Lock()
	o.commitLocked(http.StatusOK)
	o.mu.Unlock()
	return o.w.Write(p)
}

// Flush pushes buffered bytes to the client.
func (o *ResponseOutbound) Flush() {
	_ = o.rc.Flush()
}

func (o *ResponseOutbound) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finalized++
	o.commitLocked(http.StatusOK)
	if err := o.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (o *ResponseOutbound) Abort(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finalized++
	if o.committed {
		o.cut = true
		return
	}

	h := o.w.Header()
	for _, k := range []string{"Content-Disposition", "Content-Length", "Content-Type"} {
		h.Del(k)
	}
	msg := ErrorMessage(err)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Length", strconv.Itoa(len(msg)))
	o.commitLocked(media.HTTPStatus(err))
	_, _ = o.w.Write([]byte(msg))
}

// Committed reports whether the status line has been sent.
func (o *ResponseOutbound) Committed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.committed
}

// Finalizations is the number of Close/Abort calls seen.
func (o *ResponseOutbound) Finalizations() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finalized
}

// Finish aborts the connection if the response was cut after streaming
// started. It panics with http.ErrAbortHandler, which net/http treats as a
// silent connection abort; recovery middleware must let it through.
func (o *ResponseOutbound) Finish() {
	o.mu.Lock()
	cut := o.cut
	o.mu.Unlock()
	if cut {
		panic(http.ErrAbortHandler)
	}
}
