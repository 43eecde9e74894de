package session

import (
	"net/http"
	"time"
)

// Cookie is a browser cookie as stored on disk or exported by a browser
// extension.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	SameSite       string  `json:"sameSite,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"` // Unix timestamp, 0 for session cookies
}

// Expired reports whether the cookie carries an expiry that has passed.
func (c Cookie) Expired(now time.Time) bool {
	if c.ExpirationDate <= 0 {
		return false
	}
	return now.After(time.Unix(int64(c.ExpirationDate), 0))
}

// HTTP converts the cookie for use with an http.CookieJar.
func (c Cookie) HTTP() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if hc.Path == "" {
		hc.Path = "/"
	}
	if c.ExpirationDate > 0 {
		hc.Expires = time.Unix(int64(c.ExpirationDate), 0)
	}
	return hc
}

// FromHTTP converts a cookie read back from a jar or a response.
func FromHTTP(hc *http.Cookie, domain string) Cookie {
	c := Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Domain:   hc.Domain,
		Path:     hc.Path,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
	}
	if c.Domain == "" {
		c.Domain = domain
	}
	if !hc.Expires.IsZero() {
		c.ExpirationDate = float64(hc.Expires.Unix())
	}
	return c
}

// CookieData is the per-domain record kept in the cookie store.
type CookieData struct {
	Domain     string   `json:"domain"`
	CapturedAt string   `json:"capturedAt"` // RFC3339
	URL        string   `json:"url,omitempty"`
	UserAgent  string   `json:"userAgent,omitempty"`
	Cookies    []Cookie `json:"cookies"`

	// FailedAt is set when a run saw the login page despite these cookies
	FailedAt string `json:"failedAt,omitempty"`
}

// HTTPCookies returns the unexpired cookies ready for a jar.
func (d *CookieData) HTTPCookies(now time.Time) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range d.Cookies {
		if c.Name == "" || c.Expired(now) {
			continue
		}
		out = append(out, c.HTTP())
	}
	return out
}

// Age returns how long ago the cookies were captured, or -1 if unknown.
func (d *CookieData) Age(now time.Time) time.Duration {
	t, err := time.Parse(time.RFC3339, d.CapturedAt)
	if err != nil {
		return -1
	}
	return now.Sub(t)
}
