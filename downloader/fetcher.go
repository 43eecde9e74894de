package downloader

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"mihiraki/models"
	"mihiraki/parser"
	"mihiraki/progress"
	"mihiraki/session"
)

// DefaultUserAgent is sent with every request of a run.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Options tunes a Fetcher.
type Options struct {
	UserAgent      string
	MaxRetries     int           // retries after the first attempt on 500/502/503/504 and timeouts
	Backoff        time.Duration // first retry delay, doubled on each further retry
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RequestDelay   time.Duration // politeness delay between pages

	WarmupURL    string         // visited once before the first page so the server can set cookies
	SeedCookies  []*http.Cookie // loaded into the jar before the warm-up visit
	SkipExisting bool           // treat a non-empty page_NNN.* already on disk as downloaded
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		UserAgent:      DefaultUserAgent,
		MaxRetries:     3,
		Backoff:        500 * time.Millisecond,
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
		RequestDelay:   500 * time.Millisecond,
	}
}

// Fetcher downloads the pages of one document, in index order, into a
// directory. A Fetcher owns one HTTP session; use one Fetcher per run.
type Fetcher struct {
	opts     Options
	reporter progress.Reporter

	jar     *cookiejar.Jar
	client  *HTTPClient
	limiter *parser.RateLimiter
}

// NewFetcher creates a Fetcher. A nil reporter discards notifications.
func NewFetcher(opts Options, reporter progress.Reporter) *Fetcher {
	if reporter == nil {
		reporter = progress.Nop
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Fetcher{
		opts:     opts,
		reporter: reporter,
		limiter:  parser.NewRateLimiter(opts.RequestDelay),
	}
}

// PageURL builds the request URL for page index i: base URL, path segment,
// then the standard base64 encoding of "<remoteFilename>/<i>".
func PageURL(task models.DownloadTask, i int) (string, error) {
	if !utf8.ValidString(task.RemoteFilename) {
		return "", &EncodeError{Index: i, Err: fmt.Errorf("remote filename is not valid UTF-8")}
	}
	payload := fmt.Sprintf("%s/%d", task.RemoteFilename, i)
	return task.BaseURL + task.URLPathSegment + base64.StdEncoding.EncodeToString([]byte(payload)), nil
}

// PageFileName returns the local name for page i with the given extension.
func PageFileName(i int, ext string) string {
	return "page_" + parser.PadKey(i) + ext
}

// Jar returns the session cookie jar, or nil before the first run.
func (f *Fetcher) Jar() *cookiejar.Jar {
	return f.jar
}

// setupSession creates the cookie jar and HTTP client once per Fetcher,
// seeds stored cookies and primes the jar from the warm-up URL.
func (f *Fetcher) setupSession(task models.DownloadTask) error {
	if f.client != nil {
		return nil
	}

	jar, err := session.NewJar()
	if err != nil {
		return err
	}
	f.jar = jar
	f.client = NewHTTPClient(jar, f.opts)

	if len(f.opts.SeedCookies) > 0 {
		if err := session.Seed(jar, task.BaseURL, f.opts.SeedCookies); err != nil {
			log.Printf("[Fetcher] Warning: could not load stored cookies: %v", err)
		} else {
			f.reporter.ReportStatus(fmt.Sprintf("Loaded %d stored cookies", len(f.opts.SeedCookies)))
		}
	}

	f.primeCookies()
	return nil
}

// primeCookies visits the warm-up URL. Failure only produces a warning;
// the run continues with whatever the jar holds.
func (f *Fetcher) primeCookies() {
	if f.opts.WarmupURL == "" {
		return
	}

	f.reporter.ReportStatus("Establishing session...")
	count, err := session.PrimeCookies(f.jar, f.opts.WarmupURL, f.opts.UserAgent, f.opts.ConnectTimeout+f.opts.ReadTimeout)
	if err != nil {
		log.Printf("[Fetcher] ⚠️ Cookie warm-up failed: %v", err)
		f.reporter.ReportStatus(fmt.Sprintf("Warning: could not establish session (%v), continuing", err))
		return
	}
	f.reporter.ReportStatus(fmt.Sprintf("Session established (%d cookies)", count))
}

// FetchAll downloads pages 0..task.TotalPages-1 into task.OutputDir.
// Per-page failures are reported and skipped. The loop stops early when
// cancel reports cancellation or ctx is done; counts gathered so far are
// returned either way. Only pre-flight failures set Err.
func (f *Fetcher) FetchAll(ctx context.Context, task models.DownloadTask, cancel progress.Canceller) models.FetchResult {
	result := models.FetchResult{Total: task.TotalPages}

	outDir, err := parser.ExpandPath(task.OutputDir)
	if err == nil {
		err = os.MkdirAll(outDir, 0755)
	}
	if err != nil {
		result.Err = fmt.Errorf("cannot create output directory %s: %w", task.OutputDir, err)
		log.Printf("[Fetcher] %v", result.Err)
		f.reporter.ReportStatus(fmt.Sprintf("Error: %v", result.Err))
		return result
	}

	if err := f.setupSession(task); err != nil {
		result.Err = fmt.Errorf("cannot create HTTP session: %w", err)
		log.Printf("[Fetcher] %v", result.Err)
		f.reporter.ReportStatus(fmt.Sprintf("Error: %v", result.Err))
		return result
	}

	log.Printf("[Fetcher] Downloading %d pages of %s into %s", task.TotalPages, task.RemoteFilename, outDir)

	for i := 0; i < task.TotalPages; i++ {
		if cancelled(ctx, cancel) {
			result.Cancelled = true
			log.Printf("[Fetcher] Interrupted before page %d/%d", i+1, task.TotalPages)
			f.reporter.ReportStatus("Download interrupted by user")
			break
		}

		if f.opts.SkipExisting {
			if existing := existingPage(outDir, i); existing != "" {
				log.Printf("[Fetcher] Skipping page %d: %s already on disk", i+1, existing)
				f.reporter.ReportStatus(fmt.Sprintf("Page %d already downloaded", i+1))
				result.SuccessCount++
				result.Skipped++
				f.reporter.ReportProgress(i+1, task.TotalPages)
				continue
			}
		}

		f.reporter.ReportStatus(fmt.Sprintf("Downloading page %d/%d...", i+1, task.TotalPages))

		name, err := f.fetchPage(ctx, task, i, outDir)
		switch {
		case err != nil:
			if _, ok := session.IsLoginRequired(err); ok {
				result.LoginRequired++
			}
			log.Printf("[Fetcher] ✗ Page %d: %v", i+1, err)
			f.reporter.ReportStatus(fmt.Sprintf("Page %d failed: %v", i+1, err))
		case name == "":
			log.Printf("[Fetcher] ⚠️ Page %d: empty response, not counted", i+1)
			f.reporter.ReportStatus(fmt.Sprintf("Warning: page %d is empty", i+1))
		default:
			result.SuccessCount++
			log.Printf("[Fetcher] ✓ Saved %s", name)
		}

		f.reporter.ReportProgress(i+1, task.TotalPages)

		if i == task.TotalPages-1 {
			break
		}
		if !f.limiter.Wait(cancel) || ctx.Err() != nil {
			result.Cancelled = true
			log.Printf("[Fetcher] Interrupted after page %d/%d", i+1, task.TotalPages)
			f.reporter.ReportStatus("Download interrupted by user")
			break
		}
	}

	summary := fmt.Sprintf("Download finished: %d/%d pages", result.SuccessCount, result.Total)
	log.Printf("[Fetcher] %s", summary)
	f.reporter.ReportStatus(summary)
	return result
}

// fetchPage requests page i and writes it to outDir. It returns the file
// name written, or "" when the body was empty. Panics are turned into
// errors so one bad page cannot end the run.
func (f *Fetcher) fetchPage(ctx context.Context, task models.DownloadTask, i int, outDir string) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Fetcher] Unexpected error on page %d: %v\n%s", i+1, r, debug.Stack())
			name, err = "", fmt.Errorf("unexpected error: %v", r)
		}
	}()

	pageURL, err := PageURL(task, i)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if parser.IsHTML(resp.ContentType) {
		return "", session.NewLoginRequiredError(pageURL, resp.Body)
	}

	name = PageFileName(i, parser.ExtensionForContentType(resp.ContentType))
	path := filepath.Join(outDir, name)
	if err := os.WriteFile(path, resp.Body, 0644); err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	if info.Size() == 0 {
		return "", nil
	}
	return name, nil
}

// existingPage returns the name of a non-empty page_NNN.* for index i.
func existingPage(outDir string, i int) string {
	matches, _ := filepath.Glob(filepath.Join(outDir, PageFileName(i, ".*")))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return filepath.Base(m)
		}
	}
	return ""
}

func cancelled(ctx context.Context, c progress.Canceller) bool {
	return ctx.Err() != nil || (c != nil && c.IsCancelled())
}
