package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.design/x/clipboard"
)

// ParseCapturedData parses cookies exported from a browser. Two layouts are
// accepted: a CookieData object, or a bare JSON array of cookies as written
// by common cookie-export extensions. For the bare array, domain names the
// record; for the object it is only a fallback.
func ParseCapturedData(raw []byte, domain string) (*CookieData, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("cookie data is empty")
	}

	var data CookieData
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &data.Cookies); err != nil {
			return nil, fmt.Errorf("failed to parse cookie array: %w", err)
		}
	} else if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if data.Domain == "" {
		data.Domain = domain
	}
	if data.Domain == "" {
		data.Domain = guessDomain(data.Cookies)
	}
	if data.Domain == "" {
		return nil, fmt.Errorf("domain is empty")
	}
	data.Domain = HostOf(data.Domain)

	if len(data.Cookies) == 0 {
		return nil, fmt.Errorf("no cookies found for %s", data.Domain)
	}
	if data.CapturedAt == "" {
		data.CapturedAt = time.Now().Format(time.RFC3339)
	}

	logSession("ParseCapturedData: Domain=%s cookies=%d", data.Domain, len(data.Cookies))
	return &data, nil
}

// ImportFromFile reads exported cookies from path and stores them.
// It returns the domain the cookies were saved under.
func (s *Store) ImportFromFile(path, domain string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logImport(domain, false, err)
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.importData(raw, domain)
}

// ImportFromClipboard reads exported cookies from the system clipboard and
// stores them.
func (s *Store) ImportFromClipboard(domain string) (string, error) {
	if err := clipboard.Init(); err != nil {
		logImport(domain, false, err)
		return "", fmt.Errorf("failed to initialize clipboard: %w", err)
	}

	raw := clipboard.Read(clipboard.FmtText)
	if len(raw) == 0 {
		err := fmt.Errorf("clipboard is empty")
		logImport(domain, false, err)
		return "", err
	}

	logSession("ImportFromClipboard: Read %d bytes from clipboard", len(raw))
	return s.importData(raw, domain)
}

func (s *Store) importData(raw []byte, domain string) (string, error) {
	data, err := ParseCapturedData(raw, domain)
	if err != nil {
		logImport(domain, false, err)
		return "", err
	}

	if err := s.Save(data, data.Domain); err != nil {
		logImport(data.Domain, false, err)
		return "", fmt.Errorf("failed to save data: %w", err)
	}

	logImport(data.Domain, true, nil)
	return data.Domain, nil
}

// HostOf returns the bare host for a URL or domain string.
func HostOf(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			return u.Hostname()
		}
	}
	s = strings.TrimPrefix(s, ".")
	if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}
	return s
}

func guessDomain(cookies []Cookie) string {
	for _, c := range cookies {
		if c.Domain != "" {
			return c.Domain
		}
	}
	return ""
}
