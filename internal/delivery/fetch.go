// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/ytgrab/internal/media"
	"github.com/ManuGH/ytgrab/internal/platform/httpx"
	"github.com/ManuGH/ytgrab/internal/platform/netx"
)

const (
	defaultHeaderTimeout = 15 * time.Second
	defaultIdleTimeout   = 30 * time.Second

	// defaultChunkSize matches the range size kkdai/youtube reads with.
	defaultChunkSize int64 = 10 << 20
)

var (
	errIdleTimeout     = errors.New("upstream idle timeout")
	errRangeNotHonored = errors.New("upstream stopped honoring range requests")
)

// Fetcher opens the byte stream behind a stream descriptor.
type Fetcher interface {
	Open(ctx context.Context, s media.StreamDescriptor) (io.ReadCloser, error)
}

// HTTPFetcher fetches selected streams over HTTP in ranged chunks. Response
// headers are bounded by the client; each body is bounded by an idle watchdog
// that cancels the request when no bytes arrive for IdleTimeout. Servers that
// ignore Range are read as one body.
type HTTPFetcher struct {
	client *http.Client
	idle   time.Duration
	chunk  int64
}

// NewHTTPFetcher builds a fetcher sending headers on every request.
func NewHTTPFetcher(headerTimeout, idleTimeout time.Duration, headers http.Header) *HTTPFetcher {
	if headerTimeout <= 0 {
		headerTimeout = defaultHeaderTimeout
	}
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &HTTPFetcher{
		client: httpx.NewStreamingClient(headerTimeout, headers),
		idle:   idleTimeout,
		chunk:  defaultChunkSize,
	}
}

func (f *HTTPFetcher) Open(ctx context.Context, s media.StreamDescriptor) (io.ReadCloser, error) {
	u, err := netx.ParseHTTPURL(s.SourceURL)
	if err != nil {
		return nil, media.Wrap(media.ErrUpstreamFetch, "delivery.fetch", err)
	}
	raw := u.String()

	ranged := f.chunk > 0
	part, err := f.get(ctx, raw, 0, ranged)
	if ranged && statusOf(err) == http.StatusForbidden {
		// Some edges refuse ranged reads on links signed for a single request.
		part, err = f.get(ctx, raw, 0, false)
	}
	if err != nil {
		return nil, err
	}
	if !part.partial {
		return part.body, nil
	}
	return &chunkReader{
		ctx:   ctx,
		f:     f,
		url:   raw,
		cur:   part.body,
		end:   f.chunk,
		total: part.total,
	}, nil
}

type fetchedPart struct {
	body    *idleReader
	partial bool
	total   int64 // -1 when unknown
}

// get issues one GET, limited to [start, start+chunk) when ranged.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string, start int64, ranged bool) (fetchedPart, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel(nil)
		return fetchedPart{}, media.Wrap(media.ErrUpstreamFetch, "delivery.fetch", err)
	}
	if ranged {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, start+f.chunk-1))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel(nil)
		return fetchedPart{}, media.Wrap(media.ErrUpstreamFetch, "delivery.fetch", err)
	}

	part := fetchedPart{total: -1}
	switch {
	case ranged && resp.StatusCode == http.StatusPartialContent:
		part.partial = true
		part.total = contentRangeTotal(resp.Header.Get("Content-Range"))
	case resp.StatusCode >= 200 && resp.StatusCode <= 299 && start == 0:
	default:
		_ = resp.Body.Close()
		cancel(nil)
		cause := fmt.Errorf("GET %s", netx.Redact(rawURL))
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			cause = fmt.Errorf("%w: GET %s", errRangeNotHonored, netx.Redact(rawURL))
		}
		return fetchedPart{}, &media.Error{
			Kind:   media.ErrUpstreamFetch,
			Op:     "delivery.fetch",
			Status: resp.StatusCode,
			Err:    cause,
		}
	}
	part.body = newIdleReader(ctx, cancel, resp.Body, f.idle)
	return part, nil
}

// contentRangeTotal parses the complete length of "bytes a-b/total".
func contentRangeTotal(v string) int64 {
	_, total, ok := strings.Cut(v, "/")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func statusOf(err error) int {
	var me *media.Error
	if errors.As(err, &me) {
		return me.Status
	}
	return 0
}

// chunkReader stitches consecutive range responses into one stream. A short
// chunk, the advertised total, or a 416 past the end ends the stream.
type chunkReader struct {
	ctx   context.Context
	f     *HTTPFetcher
	url   string
	off   int64
	end   int64
	total int64

	mu     sync.Mutex
	cur    *idleReader
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for {
		r.mu.Lock()
		cur := r.cur
		r.mu.Unlock()
		if cur == nil {
			return 0, io.EOF
		}

		n, err := cur.Read(p)
		r.off += int64(n)
		if !errors.Is(err, io.EOF) {
			return n, err
		}
		_ = cur.Close()

		if r.off < r.end || (r.total >= 0 && r.off >= r.total) {
			r.swap(nil)
			return n, io.EOF
		}

		part, err := r.f.get(r.ctx, r.url, r.off, true)
		switch {
		case statusOf(err) == http.StatusRequestedRangeNotSatisfiable && r.total < 0:
			r.swap(nil)
			return n, io.EOF
		case err != nil:
			r.swap(nil)
			return n, err
		case !part.partial:
			_ = part.body.Close()
			r.swap(nil)
			return n, media.Wrap(media.ErrUpstreamFetch, "delivery.fetch", errRangeNotHonored)
		}
		if part.total >= 0 {
			r.total = part.total
		}
		r.end = r.off + r.f.chunk
		if !r.swap(part.body) {
			return n, io.ErrClosedPipe
		}
		if n > 0 {
			return n, nil
		}
	}
}

// swap installs next as the current body; it reports false after Close.
func (r *chunkReader) swap(next *idleReader) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		if next != nil {
			_ = next.Close()
		}
		return false
	}
	r.cur = next
	return true
}

func (r *chunkReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cur == nil {
		return nil
	}
	return r.cur.Close()
}

// idleReader cancels its request when a single Read blocks for longer than the
// idle period. Time spent outside Read (downstream backpressure) is not counted.
type idleReader struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	body   io.ReadCloser
	idle   time.Duration
	timer  *time.Timer
	once   sync.Once
}

func newIdleReader(ctx context.Context, cancel context.CancelCauseFunc, body io.ReadCloser, idle time.Duration) *idleReader {
	r := &idleReader{ctx: ctx, cancel: cancel, body: body, idle: idle}
	r.timer = time.AfterFunc(idle, func() { cancel(errIdleTimeout) })
	r.timer.Stop()
	return r
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.timer.Reset(r.idle)
	n, err := r.body.Read(p)
	r.timer.Stop()
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(context.Cause(r.ctx), errIdleTimeout) {
		err = fmt.Errorf("%w: %w", errIdleTimeout, err)
	}
	return n, err
}

func (r *idleReader) Close() error {
	var err error
	r.once.Do(func() {
		r.timer.Stop()
		err = r.body.Close()
		r.cancel(nil)
	})
	return err
}
