package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientBackoffDoubles(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Backoff = 500 * time.Millisecond
	client := NewHTTPClient(nil, opts)

	var waits []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := client.Get(context.Background(), srv.URL)
	he, ok := IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusGatewayTimeout, he.StatusCode)
	assert.Equal(t, int32(4), hits.Load())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}, waits)
}

func TestHTTPClientSendsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mihiraki-test", r.UserAgent())
		w.Header().Set("Content-Type", "image/gif")
		w.Write([]byte("GIF89a"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.UserAgent = "mihiraki-test"
	resp, err := NewHTTPClient(nil, opts).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", resp.ContentType)
	assert.Equal(t, []byte("GIF89a"), resp.Body)
}

func TestHTTPClientRetriesTimeouts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.ReadTimeout = 100 * time.Millisecond
	resp, err := NewHTTPClient(nil, opts).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), resp.Body)
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPClientTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.MaxRetries = 1
	opts.ReadTimeout = 50 * time.Millisecond
	_, err := NewHTTPClient(nil, opts).Get(context.Background(), srv.URL)

	te, ok := IsTimeout(err)
	require.True(t, ok)
	assert.Equal(t, 2, te.Attempts)
}

func TestHTTPClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(nil, testOptions()).Get(context.Background(), url)
	var ne *NetworkError
	assert.ErrorAs(t, err, &ne)
}

func TestHTTPErrorMessage(t *testing.T) {
	assert.NotContains(t, (&HTTPError{StatusCode: 404, URL: "u"}).Error(), "session expired")
	assert.Contains(t, (&HTTPError{StatusCode: 403, URL: "u"}).Error(), "session expired or cookies invalid")
}

func TestDecompressBodyIgnoresUnknownEncoding(t *testing.T) {
	body := []byte{0x89, 'P', 'N', 'G'}
	out, changed, err := decompressBody(body, "")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, body, out)

	_, _, err = decompressBody([]byte("not gzip"), "gzip")
	assert.Error(t, err)
}

func streamingHandler(chunks int, pause time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/tiff")
		flusher := w.(http.Flusher)
		for i := 0; i < chunks; i++ {
			w.Write([]byte("0123456789"))
			flusher.Flush()
			time.Sleep(pause)
		}
	}
}

func TestHTTPClientSlowSteadyBodySucceeds(t *testing.T) {
	srv := httptest.NewServer(streamingHandler(10, 60*time.Millisecond))
	defer srv.Close()

	opts := testOptions()
	opts.ConnectTimeout = 100 * time.Millisecond
	opts.ReadTimeout = 200 * time.Millisecond
	opts.MaxRetries = 1

	resp, err := NewHTTPClient(nil, opts).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 100)
}

func TestHTTPClientStalledBodyTimesOut(t *testing.T) {
	srv := httptest.NewServer(streamingHandler(2, 400*time.Millisecond))
	defer srv.Close()

	opts := testOptions()
	opts.ReadTimeout = 100 * time.Millisecond
	opts.MaxRetries = 0

	_, err := NewHTTPClient(nil, opts).Get(context.Background(), srv.URL)
	te, ok := IsTimeout(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 1, te.Attempts)
}
