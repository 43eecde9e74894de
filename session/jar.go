package session

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// NewJar returns an empty cookie jar that honours the public suffix list,
// so a library site cannot set cookies for a whole TLD.
func NewJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// Seed adds cookies to jar as if they had been set by targetURL.
func Seed(jar http.CookieJar, targetURL string, cookies []*http.Cookie) error {
	u, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(cookies) == 0 {
		return nil
	}

	jar.SetCookies(u, cookies)
	logSession("Seed: Added %d cookies for %s", len(cookies), u.Host)
	return nil
}

// Count returns how many cookies jar would send to targetURL.
func Count(jar http.CookieJar, targetURL string) int {
	u, err := url.Parse(targetURL)
	if err != nil {
		return 0
	}
	return len(jar.Cookies(u))
}

// Snapshot returns the cookies jar would send to targetURL, ready to be
// stored.
func Snapshot(jar http.CookieJar, targetURL string) []Cookie {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil
	}

	var out []Cookie
	for _, hc := range jar.Cookies(u) {
		out = append(out, FromHTTP(hc, u.Hostname()))
	}
	return out
}
