package session

import (
	"fmt"
	"log"
	"net/http/cookiejar"
	"time"

	"github.com/gocolly/colly"
)

// PrimeCookies visits warmupURL once so the server can set session cookies
// in jar. It returns the number of cookies the jar holds for warmupURL
// afterwards. A failed visit or an empty jar is reported as an error, but
// callers treat it as a warning: the jar stays usable either way.
func PrimeCookies(jar *cookiejar.Jar, warmupURL, userAgent string, timeout time.Duration) (int, error) {
	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetCookieJar(jar)
	collector.SetRequestTimeout(timeout)

	status := 0
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		logSession("PrimeCookies: %s -> %d (%d bytes)", r.Request.URL, r.StatusCode, len(r.Body))
	})

	log.Printf("[Session] Priming cookies from %s", warmupURL)
	visitErr := collector.Visit(warmupURL)

	count := Count(jar, warmupURL)
	if visitErr != nil {
		return count, fmt.Errorf("warm-up request failed: %w", visitErr)
	}
	if count == 0 {
		return 0, fmt.Errorf("server at %s set no cookies (status %d)", warmupURL, status)
	}

	log.Printf("[Session] ✓ Jar holds %d cookies after warm-up", count)
	return count, nil
}
