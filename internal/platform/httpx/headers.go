package httpx

import "net/http"

// Browser-like defaults sent to upstream providers.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultReferer        = "https://www.youtube.com/"
	DefaultOrigin         = "https://www.youtube.com"
)

// BrowserHeaders builds the default header set. Empty arguments fall back to defaults.
func BrowserHeaders(userAgent, acceptLanguage, referer, origin string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", orDefault(userAgent, DefaultUserAgent))
	h.Set("Accept-Language", orDefault(acceptLanguage, DefaultAcceptLanguage))
	h.Set("Referer", orDefault(referer, DefaultReferer))
	h.Set("Origin", orDefault(origin, DefaultOrigin))
	return h
}

// Merge returns a copy of base with every value of extra set on top.
func Merge(base, extra http.Header) http.Header {
	out := base.Clone()
	if out == nil {
		out = http.Header{}
	}
	for k, vs := range extra {
		out.Del(k)
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// WithHeaders returns a RoundTripper that fills in headers missing from the
// outgoing request. Headers already present on the request win.
func WithHeaders(next http.RoundTripper, headers http.Header) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if len(headers) == 0 {
		return next
	}
	return &headerTransport{next: next, headers: headers.Clone()}
}

type headerTransport struct {
	next    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var clone *http.Request
	for k, vs := range t.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		if clone == nil {
			clone = req.Clone(req.Context())
		}
		for _, v := range vs {
			clone.Header.Add(k, v)
		}
	}
	if clone == nil {
		return t.next.RoundTrip(req)
	}
	return t.next.RoundTrip(clone)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
