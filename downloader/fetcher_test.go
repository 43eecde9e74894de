package downloader

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"mihiraki/models"
	"mihiraki/progress"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pathPrefix = "/viewer/book42/"

// pageServer decodes the page payload of every request and lets the test
// decide the response.
type pageServer struct {
	mu       sync.Mutex
	payloads []string
	handle   func(w http.ResponseWriter, r *http.Request, payload string, n int)
}

func (s *pageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, pathPrefix)
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.payloads = append(s.payloads, string(decoded))
	n := len(s.payloads)
	s.mu.Unlock()

	s.handle(w, r, string(decoded), n)
}

func (s *pageServer) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

func servePNG(w http.ResponseWriter, _ *http.Request, payload string, _ int) {
	w.Header().Set("Content-Type", "image/png")
	w.Write([]byte("png-bytes:" + payload))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RequestDelay = 0
	opts.Backoff = time.Millisecond
	opts.ConnectTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	return opts
}

func newTestServer(t *testing.T, handle func(http.ResponseWriter, *http.Request, string, int)) (*pageServer, *httptest.Server) {
	t.Helper()
	ps := &pageServer{handle: handle}
	srv := httptest.NewServer(ps)
	t.Cleanup(srv.Close)
	return ps, srv
}

func testTask(srv *httptest.Server, dir string, pages int) models.DownloadTask {
	return models.DownloadTask{
		BaseURL:        srv.URL + "/viewer/",
		URLPathSegment: "book42/",
		RemoteFilename: "scan.pdf",
		TotalPages:     pages,
		OutputDir:      dir,
	}
}

func TestPageURL(t *testing.T) {
	task := models.DownloadTask{BaseURL: "https://lib.example.org/viewer/", URLPathSegment: "doc/", RemoteFilename: "Ancient Text.pdf"}

	for _, i := range []int{0, 7, 123} {
		u, err := PageURL(task, i)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(u, "https://lib.example.org/viewer/doc/"))

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, "https://lib.example.org/viewer/doc/"))
		require.NoError(t, err)
		assert.Equal(t, "Ancient Text.pdf/"+strconv.Itoa(i), string(decoded))
	}
}

func TestPageURLInvalidUTF8(t *testing.T) {
	_, err := PageURL(models.DownloadTask{RemoteFilename: "bad\xff"}, 1)
	var ee *EncodeError
	assert.ErrorAs(t, err, &ee)
}

func TestFetchAllRequestsPagesInOrder(t *testing.T) {
	ps, srv := newTestServer(t, servePNG)
	dir := t.TempDir()
	rec := &progress.Recorder{}

	result := NewFetcher(testOptions(), rec).FetchAll(context.Background(), testTask(srv, dir, 5), progress.NewFlag())

	require.NoError(t, result.Err)
	assert.Equal(t, 5, result.SuccessCount)
	assert.Equal(t, 5, result.Total)
	assert.False(t, result.Cancelled)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome())

	assert.Equal(t, []string{"scan.pdf/0", "scan.pdf/1", "scan.pdf/2", "scan.pdf/3", "scan.pdf/4"}, ps.requests())
	assert.Equal(t, [][2]int{{1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}, rec.Steps)

	data, err := os.ReadFile(filepath.Join(dir, "page_003.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes:scan.pdf/3", string(data))
}

func TestFetchAllRetriesServerErrors(t *testing.T) {
	ps, srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	rec := &progress.Recorder{}

	result := NewFetcher(testOptions(), rec).FetchAll(context.Background(), testTask(srv, t.TempDir(), 1), nil)

	assert.Equal(t, 0, result.SuccessCount)
	assert.Len(t, ps.requests(), 4, "one attempt plus three retries")
	assert.Equal(t, models.OutcomeFailure, result.Outcome())

	joined := strings.Join(rec.Statuses, "\n")
	assert.Contains(t, joined, "503")
}

func TestFetchAllRecoversAfterRetry(t *testing.T) {
	ps, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request, payload string, n int) {
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		servePNG(w, r, payload, n)
	})

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, t.TempDir(), 1), nil)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Len(t, ps.requests(), 2)
}

func TestFetchAllClientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		status   int
		wantHint bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, true},
		{http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			ps, srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
				w.WriteHeader(tt.status)
			})
			rec := &progress.Recorder{}

			result := NewFetcher(testOptions(), rec).FetchAll(context.Background(), testTask(srv, t.TempDir(), 1), nil)

			assert.Equal(t, 0, result.SuccessCount)
			assert.Len(t, ps.requests(), 1)

			joined := strings.Join(rec.Statuses, "\n")
			assert.Equal(t, tt.wantHint, strings.Contains(joined, "session expired or cookies invalid"))
		})
	}
}

func TestFetchAllHTMLResponseIsNotWritten(t *testing.T) {
	_, srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string, _ int) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Login</title></head><body><input type="password"></body></html>`))
	})
	dir := t.TempDir()

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, dir, 2), nil)

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 2, result.LoginRequired)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchAllEmptyBodyIsNotCounted(t *testing.T) {
	_, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request, payload string, n int) {
		if payload == "scan.pdf/1" {
			w.Header().Set("Content-Type", "image/jpeg")
			return
		}
		servePNG(w, r, payload, n)
	})

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, t.TempDir(), 3), nil)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, models.OutcomePartial, result.Outcome())
}

func TestFetchAllCancellation(t *testing.T) {
	ps, srv := newTestServer(t, servePNG)
	flag := progress.NewFlag()
	reporter := progress.Funcs{Progress: func(current, total int) {
		if current == 2 {
			flag.Cancel()
		}
	}}

	opts := testOptions()
	opts.RequestDelay = 20 * time.Millisecond
	result := NewFetcher(opts, reporter).FetchAll(context.Background(), testTask(srv, t.TempDir(), 10), flag)

	assert.True(t, result.Cancelled)
	assert.LessOrEqual(t, result.SuccessCount, 2)
	assert.Len(t, ps.requests(), 2)
	assert.Equal(t, models.OutcomeCancelled, result.Outcome())
}

func TestFetchAllCancelledBeforeStart(t *testing.T) {
	ps, srv := newTestServer(t, servePNG)
	flag := progress.NewFlag()
	flag.Cancel()

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, t.TempDir(), 3), flag)

	assert.True(t, result.Cancelled)
	assert.Zero(t, result.SuccessCount)
	assert.Empty(t, ps.requests())
}

func TestFetchAllExtensionFromContentType(t *testing.T) {
	types := []string{"image/png", "image/gif", "image/bmp", "image/tiff", "image/jpeg", "application/octet-stream"}
	_, srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string, n int) {
		w.Header().Set("Content-Type", types[n-1])
		w.Write([]byte{1, 2, 3})
	})
	dir := t.TempDir()

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, dir, len(types)), nil)
	require.Equal(t, len(types), result.SuccessCount)

	for _, name := range []string{"page_000.png", "page_001.gif", "page_002.bmp", "page_003.tiff", "page_004.jpeg", "page_005.jpg"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestFetchAllDecodesCompressedBodies(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

	_, srv := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ string, n int) {
		var buf bytes.Buffer
		w.Header().Set("Content-Type", "image/png")
		if n == 1 {
			bw := brotli.NewWriter(&buf)
			bw.Write(png)
			bw.Close()
			w.Header().Set("Content-Encoding", "br")
		} else {
			gw := gzip.NewWriter(&buf)
			gw.Write(png)
			gw.Close()
			w.Header().Set("Content-Encoding", "gzip")
		}
		w.Write(buf.Bytes())
	})
	dir := t.TempDir()

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, dir, 2), nil)
	require.Equal(t, 2, result.SuccessCount)

	for _, name := range []string{"page_000.png", "page_001.png"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, png, data, name)
	}
}

func TestFetchAllSkipExisting(t *testing.T) {
	ps, srv := newTestServer(t, servePNG)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_000.jpg"), []byte("already"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_001.png"), nil, 0644))

	opts := testOptions()
	opts.SkipExisting = true
	result := NewFetcher(opts, nil).FetchAll(context.Background(), testTask(srv, dir, 3), nil)

	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"scan.pdf/1", "scan.pdf/2"}, ps.requests())
}

func TestFetchAllOutputDirNotCreatable(t *testing.T) {
	ps, srv := newTestServer(t, servePNG)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	result := NewFetcher(testOptions(), nil).FetchAll(context.Background(), testTask(srv, filepath.Join(blocker, "pages"), 3), nil)

	require.Error(t, result.Err)
	assert.Zero(t, result.SuccessCount)
	assert.Empty(t, ps.requests())
}

func TestFetchAllWarmupFailureIsNotFatal(t *testing.T) {
	_, srv := newTestServer(t, servePNG)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	opts := testOptions()
	opts.WarmupURL = deadURL
	rec := &progress.Recorder{}
	result := NewFetcher(opts, rec).FetchAll(context.Background(), testTask(srv, t.TempDir(), 2), nil)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Contains(t, strings.Join(rec.Statuses, "\n"), "Warning: could not establish session")
}

func TestFetchAllSendsSeededAndPrimedCookies(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	mux := http.NewServeMux()
	mux.HandleFunc("/warmup", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "primed", Path: "/"})
		w.Write([]byte("ok"))
	})
	mux.HandleFunc(pathPrefix, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		for _, c := range r.Cookies() {
			seen = append(seen, c.Name+"="+c.Value)
		}
		mu.Unlock()
		servePNG(w, r, "", 0)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := testOptions()
	opts.WarmupURL = srv.URL + "/warmup"
	opts.SeedCookies = []*http.Cookie{{Name: "auth", Value: "stored", Path: "/"}}
	f := NewFetcher(opts, nil)

	result := f.FetchAll(context.Background(), testTask(srv, t.TempDir(), 1), nil)
	require.Equal(t, 1, result.SuccessCount)

	assert.ElementsMatch(t, []string{"auth=stored", "JSESSIONID=primed"}, seen)
	require.NotNil(t, f.Jar())
}
