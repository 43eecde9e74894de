package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// Response is a fully read, decompressed page response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// HTTPClient issues GET requests with a browser-like user agent, a shared
// cookie jar, and retries on transient server errors.
type HTTPClient struct {
	httpClient  *http.Client
	userAgent   string
	maxRetries  int
	backoff     time.Duration
	readTimeout time.Duration // longest pause allowed while reading a body

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// retryableStatus lists the server errors that are worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// NewHTTPClient creates a client bound to jar. It is meant to be reused for
// every page of one run and is not safe for concurrent runs.
func NewHTTPClient(jar http.CookieJar, opts Options) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		userAgent:   opts.UserAgent,
		maxRetries:  opts.MaxRetries,
		backoff:     opts.Backoff,
		readTimeout: opts.ReadTimeout,
		sleep:       sleepContext,
	}
}

// Get fetches targetURL. Statuses 500, 502, 503 and 504 and timeouts are
// retried up to maxRetries times with exponential backoff; anything else
// is returned after the first attempt. A non-2xx final status is returned
// as *HTTPError.
func (c *HTTPClient) Get(ctx context.Context, targetURL string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt-1)))
			log.Printf("[HTTPClient] Retry %d/%d in %v for %s (%v)", attempt, c.maxRetries, wait, targetURL, lastErr)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, &NetworkError{URL: targetURL, Err: err}
			}
		}

		resp, err := c.getOnce(ctx, targetURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &NetworkError{URL: targetURL, Err: ctx.Err()}
			}
			if !isTimeout(err) {
				log.Printf("[HTTPClient] Non-timeout error, not retrying: %v", err)
				return nil, &NetworkError{URL: targetURL, Err: err}
			}
			lastErr = err
			log.Printf("[HTTPClient] ⚠️ Timeout on attempt %d/%d: %v", attempt+1, c.maxRetries+1, err)
			continue
		}

		if retryableStatus[resp.StatusCode] {
			lastErr = &HTTPError{StatusCode: resp.StatusCode, URL: targetURL}
			log.Printf("[HTTPClient] ⚠️ Status %d on attempt %d/%d", resp.StatusCode, attempt+1, c.maxRetries+1)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, URL: targetURL}
		}

		if attempt > 0 {
			log.Printf("[HTTPClient] ✓ Success after %d retries", attempt)
		}
		return resp, nil
	}

	log.Printf("[HTTPClient] ✗ Failed after %d attempts: %s", c.maxRetries+1, targetURL)
	if he, ok := IsHTTPError(lastErr); ok {
		return nil, he
	}
	return nil, &TimeoutError{URL: targetURL, Attempts: c.maxRetries + 1, Err: lastErr}
}

// getOnce performs a single request attempt
func (c *HTTPClient) getOnce(ctx context.Context, targetURL string) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(newIdleReader(resp.Body, c.readTimeout, cancel))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	decoded, wasCompressed, err := decompressBody(body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress response: %w", err)
	}
	if wasCompressed {
		log.Printf("[HTTPClient] ✓ Decompressed response: %d → %d bytes", len(body), len(decoded))
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        decoded,
	}, nil
}

// errIdleTimeout reports a body read that stalled longer than the read
// timeout.
var errIdleTimeout error = idleTimeoutError{}

type idleTimeoutError struct{}

func (idleTimeoutError) Error() string   { return "read timeout: no data received" }
func (idleTimeoutError) Timeout() bool   { return true }
func (idleTimeoutError) Temporary() bool { return true }

// idleReader cancels the request when no data arrives for timeout. The
// timer restarts after every read, so a slow but steady body is fine.
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) io.Reader {
	if timeout <= 0 {
		return r
	}
	ir := &idleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.expired.Store(true)
		cancel()
	})
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if ir.expired.Load() {
		return n, errIdleTimeout
	}
	if err != nil {
		ir.timer.Stop()
		return n, err
	}
	ir.timer.Reset(ir.timeout)
	return n, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
