package downloader

import (
	"context"
	"fmt"
	"log"
	"time"

	"mihiraki/session"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// LoginOptions controls an interactive browser login.
type LoginOptions struct {
	URL          string        // page that sets the session cookies, usually the warm-up URL
	UserAgent    string        // also stored with the cookies
	Timeout      time.Duration // how long the user has to log in
	PollInterval time.Duration
	Headless     bool // for sites that set cookies without user input
}

// BrowserLogin opens Chrome at opts.URL and waits until the page no longer
// shows a password field and cookies are set, the browser is closed, or
// the timeout expires. The cookies seen last are returned for storing.
func BrowserLogin(ctx context.Context, opts LoginOptions) (*session.CookieData, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(opts.UserAgent),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelTimeout()

	log.Printf("[Browser] Opening %s for login (timeout %v)", opts.URL, opts.Timeout)
	if err := chromedp.Run(timeoutCtx, chromedp.Navigate(opts.URL), chromedp.WaitReady("body")); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	var last []*network.Cookie
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

poll:
	for {
		var cookies []*network.Cookie
		var loginForm bool
		err := chromedp.Run(timeoutCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				var err error
				cookies, err = network.GetCookies().WithUrls([]string{opts.URL}).Do(ctx)
				return err
			}),
			chromedp.Evaluate(`document.querySelector('input[type="password"]') !== null`, &loginForm),
		)
		if err != nil {
			// Browser closed or timed out: keep what was captured
			log.Printf("[Browser] Stopped polling: %v", err)
			break poll
		}

		last = cookies
		if !loginForm && len(cookies) > 0 {
			log.Printf("[Browser] ✓ No login form on page, %d cookies set", len(cookies))
			break poll
		}

		select {
		case <-timeoutCtx.Done():
			break poll
		case <-ticker.C:
		}
	}

	if len(last) == 0 {
		return nil, fmt.Errorf("no cookies captured from %s", opts.URL)
	}

	data := &session.CookieData{
		Domain:     session.HostOf(opts.URL),
		CapturedAt: time.Now().Format(time.RFC3339),
		URL:        opts.URL,
		UserAgent:  opts.UserAgent,
	}
	for _, c := range last {
		data.Cookies = append(data.Cookies, cookieFromCDP(c))
	}

	log.Printf("[Browser] ✓ Captured %d cookies for %s", len(data.Cookies), data.Domain)
	return data, nil
}

// cookieFromCDP converts a DevTools cookie. Session cookies report a
// negative expiry and are stored without one.
func cookieFromCDP(c *network.Cookie) session.Cookie {
	out := session.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: string(c.SameSite),
	}
	if !c.Session && c.Expires > 0 {
		out.ExpirationDate = c.Expires
	}
	return out
}
