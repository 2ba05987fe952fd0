package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 20 * time.Second
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 15 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 32
	defaultMaxIdleConnsPerHost   = 8
)

// NewTransport returns a hardened transport. headerTimeout bounds the wait for
// response headers; the body of a streaming response is not bounded by it.
func NewTransport(headerTimeout time.Duration) *http.Transport {
	if headerTimeout <= 0 {
		headerTimeout = defaultResponseHeaderTimeout
	}
	dialTimeout := headerTimeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}

// NewClient returns a hardened HTTP client for bounded request/response calls
// such as manifest resolution. The whole exchange is limited by timeout.
func NewClient(timeout time.Duration, headers http.Header) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: Instrument(WithHeaders(NewTransport(timeout), headers)),
	}
}

// NewStreamingClient returns a client without an overall deadline. Callers are
// expected to bound the body with a context or an idle watchdog.
func NewStreamingClient(headerTimeout time.Duration, headers http.Header) *http.Client {
	return &http.Client{
		Transport: Instrument(WithHeaders(NewTransport(headerTimeout), headers)),
	}
}

// Instrument wraps rt with OpenTelemetry client spans.
func Instrument(rt http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(rt)
}
