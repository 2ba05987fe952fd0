package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportBoundsTimeouts(t *testing.T) {
	tr := NewTransport(2 * time.Second)
	assert.Equal(t, 2*time.Second, tr.ResponseHeaderTimeout)
	assert.Equal(t, 2*time.Second, tr.TLSHandshakeTimeout)

	tr = NewTransport(0)
	assert.Equal(t, defaultResponseHeaderTimeout, tr.ResponseHeaderTimeout)
	assert.Equal(t, defaultDialTimeout, tr.TLSHandshakeTimeout)
}

func TestNewClientDefaultsTimeout(t *testing.T) {
	c := NewClient(0, nil)
	assert.Equal(t, defaultClientTimeout, c.Timeout)

	s := NewStreamingClient(time.Second, nil)
	assert.Zero(t, s.Timeout)
}

func TestHeaderTransportFillsMissingHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	headers := BrowserHeaders("", "", "", "")
	headers.Set("Cookie", "SID=1")
	client := &http.Client{Transport: WithHeaders(http.DefaultTransport, headers)}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/1.0")

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "custom/1.0", got.Get("User-Agent"), "request header wins")
	assert.Equal(t, DefaultAcceptLanguage, got.Get("Accept-Language"))
	assert.Equal(t, DefaultReferer, got.Get("Referer"))
	assert.Equal(t, "SID=1", got.Get("Cookie"))
	assert.Empty(t, req.Header.Get("Cookie"), "caller request is not mutated")
}

func TestMerge(t *testing.T) {
	base := http.Header{"A": {"1"}, "B": {"2"}}
	out := Merge(base, http.Header{"B": {"3"}, "C": {"4"}})
	assert.Equal(t, "1", out.Get("A"))
	assert.Equal(t, "3", out.Get("B"))
	assert.Equal(t, "4", out.Get("C"))
	assert.Equal(t, "2", base.Get("B"))
}
