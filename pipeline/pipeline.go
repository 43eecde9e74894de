package pipeline

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"runtime/debug"
	"sync"
	"time"

	"mihiraki/downloader"
	"mihiraki/models"
	"mihiraki/progress"
	"mihiraki/session"
	"mihiraki/spread"
)

// PageFetcher downloads the pages of a DownloadTask.
type PageFetcher interface {
	FetchAll(ctx context.Context, task models.DownloadTask, cancel progress.Canceller) models.FetchResult
}

// sessionHolder is implemented by fetchers that keep a cookie jar across
// requests.
type sessionHolder interface {
	Jar() *cookiejar.Jar
}

// SpreadAssembler builds spreads from a pages directory.
type SpreadAssembler interface {
	ProcessAll(run models.ProcessingRun, cancel progress.Canceller) models.AssembleResult
}

// Report is what a caller gets back from one Orchestrator call.
type Report struct {
	Fetch    *models.FetchResult    // nil when no download ran
	Assemble *models.AssembleResult // nil when no processing ran
	Outcome  models.Outcome
	Message  string
	Err      error // ErrBusy, a pre-flight error or a *CriticalError
}

// Orchestrator runs the download and processing pipelines one at a time
// against a shared cancellation flag.
type Orchestrator struct {
	FetcherOptions   downloader.Options
	AssemblerOptions spread.Options
	Reporter         progress.Reporter

	// Cookies, when set, supplies stored cookies for CookieDomain and is
	// told when the server rejected them.
	Cookies      *session.Store
	CookieDomain string

	// LogPath is named in critical error messages.
	LogPath string

	flag *progress.Flag

	mu      sync.Mutex
	running bool

	newFetcher   func(downloader.Options, progress.Reporter) PageFetcher
	newAssembler func(spread.Options, progress.Reporter) SpreadAssembler
}

// New creates an Orchestrator with default pipeline options.
func New(reporter progress.Reporter) *Orchestrator {
	if reporter == nil {
		reporter = progress.Nop
	}
	return &Orchestrator{
		FetcherOptions:   downloader.DefaultOptions(),
		AssemblerOptions: spread.DefaultOptions(),
		Reporter:         reporter,
		flag:             progress.NewFlag(),
		newFetcher: func(opts downloader.Options, r progress.Reporter) PageFetcher {
			return downloader.NewFetcher(opts, r)
		},
		newAssembler: func(opts spread.Options, r progress.Reporter) SpreadAssembler {
			return spread.NewAssembler(opts, r)
		},
	}
}

// Cancel asks the running pipeline to stop at its next checkpoint.
func (o *Orchestrator) Cancel() {
	o.flag.Cancel()
}

// Download runs the Fetcher for task.
func (o *Orchestrator) Download(ctx context.Context, task models.DownloadTask) Report {
	return o.run("download", func(rep *Report) {
		o.download(ctx, task, rep)
		rep.Outcome = rep.Fetch.Outcome()
		rep.Message = fetchMessage(*rep.Fetch)
	})
}

// Process runs the Assembler for run.
func (o *Orchestrator) Process(run models.ProcessingRun) Report {
	return o.run("processing", func(rep *Report) {
		o.process(run, rep)
		rep.Outcome = rep.Assemble.Outcome()
		rep.Message = assembleMessage(*rep.Assemble)
	})
}

// DownloadAndProcess runs the Fetcher, then the Assembler over the pages it
// wrote. Processing is skipped when the download was cancelled or produced
// no pages.
func (o *Orchestrator) DownloadAndProcess(ctx context.Context, task models.DownloadTask, run models.ProcessingRun) Report {
	return o.run("download and processing", func(rep *Report) {
		o.download(ctx, task, rep)
		fr := *rep.Fetch

		if fr.Cancelled || fr.Err != nil || fr.SuccessCount == 0 {
			rep.Outcome = fr.Outcome()
			rep.Message = fetchMessage(fr) + "; processing skipped"
			o.Reporter.ReportStatus("Skipping processing: no pages to work with")
			return
		}

		o.process(run, rep)
		ar := *rep.Assemble
		rep.Outcome = ar.Outcome()
		if rep.Outcome == models.OutcomeSuccess && fr.Outcome() == models.OutcomePartial {
			rep.Outcome = models.OutcomePartial
		}
		rep.Message = fetchMessage(fr) + "; " + assembleMessage(ar)
	})
}

// run guards against overlapping runs, resets the cancellation flag and
// turns a panic in either pipeline into a CriticalError.
func (o *Orchestrator) run(stage string, body func(*Report)) (rep Report) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return Report{Outcome: models.OutcomeFailure, Err: ErrBusy, Message: ErrBusy.Error()}
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Pipeline] Critical error during %s: %v\n%s", stage, r, debug.Stack())
			rep.Err = &CriticalError{Stage: stage, Value: r}
			rep.Outcome = models.OutcomeFailure
			rep.Message = rep.Err.Error()
			if o.LogPath != "" {
				rep.Message += fmt.Sprintf(" (see %s)", o.LogPath)
			}
			o.Reporter.ReportStatus(rep.Message)
		}
	}()

	o.flag.Reset()
	start := time.Now()
	log.Printf("[Pipeline] Starting %s", stage)

	body(&rep)

	if rep.Err == nil {
		switch {
		case rep.Fetch != nil && rep.Fetch.Err != nil:
			rep.Err = rep.Fetch.Err
		case rep.Assemble != nil && rep.Assemble.Err != nil:
			rep.Err = rep.Assemble.Err
		}
	}

	log.Printf("[Pipeline] Finished %s in %v: %s (%s)", stage, time.Since(start).Round(time.Millisecond), rep.Outcome, rep.Message)
	return rep
}

func (o *Orchestrator) download(ctx context.Context, task models.DownloadTask, rep *Report) {
	opts := o.FetcherOptions
	stored := o.storedCookies()
	opts.SeedCookies = append(append([]*http.Cookie(nil), o.FetcherOptions.SeedCookies...), stored...)

	fetcher := o.newFetcher(opts, o.Reporter)
	result := fetcher.FetchAll(ctx, task, o.flag)
	rep.Fetch = &result

	if result.LoginRequired > 0 && o.Cookies != nil && o.CookieDomain != "" {
		if err := o.Cookies.MarkFailed(o.CookieDomain); err != nil {
			log.Printf("[Pipeline] Could not mark cookies for %s as failed: %v", o.CookieDomain, err)
		}
		return
	}

	if len(stored) > 0 && result.SuccessCount > 0 && result.Err == nil {
		if h, ok := fetcher.(sessionHolder); ok && h.Jar() != nil {
			o.saveSession(h.Jar(), task.BaseURL)
		}
	}
}

// saveSession writes the cookies the library sent back during a good run
// over the stored record. CapturedAt is kept so the age limit still applies
// from the original login.
func (o *Orchestrator) saveSession(jar http.CookieJar, targetURL string) {
	fresh := session.Snapshot(jar, targetURL)
	if len(fresh) == 0 {
		return
	}

	data, err := o.Cookies.Load(o.CookieDomain)
	if err != nil {
		log.Printf("[Pipeline] Could not reload cookies for %s: %v", o.CookieDomain, err)
		return
	}

	// The jar drops expiry dates; carry them over from the stored copy
	expiry := make(map[string]float64, len(data.Cookies))
	for _, c := range data.Cookies {
		expiry[c.Name] = c.ExpirationDate
	}
	for i := range fresh {
		if fresh[i].ExpirationDate == 0 {
			fresh[i].ExpirationDate = expiry[fresh[i].Name]
		}
	}

	data.Cookies = fresh
	data.FailedAt = ""
	if err := o.Cookies.Save(data, o.CookieDomain); err != nil {
		log.Printf("[Pipeline] Could not save refreshed cookies for %s: %v", o.CookieDomain, err)
		return
	}
	log.Printf("[Pipeline] ✓ Saved %d refreshed cookies for %s", len(fresh), o.CookieDomain)
}

func (o *Orchestrator) process(run models.ProcessingRun, rep *Report) {
	result := o.newAssembler(o.AssemblerOptions, o.Reporter).ProcessAll(run, o.flag)
	rep.Assemble = &result
}

// storedCookies loads usable cookies for CookieDomain, or none.
func (o *Orchestrator) storedCookies() []*http.Cookie {
	if o.Cookies == nil || o.CookieDomain == "" {
		return nil
	}

	data, err := o.Cookies.Load(o.CookieDomain)
	if err != nil {
		log.Printf("[Pipeline] No stored cookies for %s: %v", o.CookieDomain, err)
		return nil
	}

	now := time.Now()
	if err := session.Validate(data, now); err != nil {
		log.Printf("[Pipeline] Stored cookies for %s not used: %v", o.CookieDomain, err)
		o.Reporter.ReportStatus(fmt.Sprintf("Warning: stored cookies for %s not used (%v)", o.CookieDomain, err))
		return nil
	}
	return data.HTTPCookies(now)
}

func fetchMessage(r models.FetchResult) string {
	if r.Err != nil {
		return fmt.Sprintf("Download failed: %v", r.Err)
	}
	switch r.Outcome() {
	case models.OutcomeSuccess:
		return fmt.Sprintf("All %d pages downloaded", r.Total)
	case models.OutcomePartial:
		return fmt.Sprintf("Downloaded %d of %d pages, some pages failed", r.SuccessCount, r.Total)
	case models.OutcomeCancelled:
		return fmt.Sprintf("Download cancelled after %d of %d pages", r.SuccessCount, r.Total)
	default:
		msg := fmt.Sprintf("No pages could be downloaded (0 of %d)", r.Total)
		if r.LoginRequired > 0 {
			msg += ", the server asked for a login"
		}
		return msg
	}
}

func assembleMessage(r models.AssembleResult) string {
	if r.Err != nil {
		return fmt.Sprintf("Processing failed: %v", r.Err)
	}
	switch r.Outcome() {
	case models.OutcomeSuccess:
		return fmt.Sprintf("Processed %d files, %d spreads created", r.Processed, r.SpreadsCreated)
	case models.OutcomePartial:
		if r.Failed > 0 {
			return fmt.Sprintf("Processed %d of %d files, %d spreads created, %d failed", r.Processed, r.Total, r.SpreadsCreated, r.Failed)
		}
		return fmt.Sprintf("Processed %d of %d files, %d spreads created, some files failed", r.Processed, r.Total, r.SpreadsCreated)
	case models.OutcomeCancelled:
		return fmt.Sprintf("Processing cancelled after %d files, %d spreads created", r.Processed, r.SpreadsCreated)
	default:
		return "No files were processed"
	}
}
