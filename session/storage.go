package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MaxCookieAge is how long captured cookies are trusted without re-capture.
const MaxCookieAge = 7 * 24 * time.Hour

// failureCooldown stops a run from reusing cookies that just failed.
const failureCooldown = 5 * time.Minute

// Store keeps one JSON file of cookies per domain inside Dir.
type Store struct {
	Dir string
}

// DefaultStore returns the store under the user config directory
// (~/.config/mihiraki/cookies on Linux).
func DefaultStore() (*Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return &Store{Dir: filepath.Join(configDir, "mihiraki", "cookies")}, nil
}

func (s *Store) path(domain string) string {
	return filepath.Join(s.Dir, domain+".json")
}

// Save writes data for domain, replacing any previous record.
func (s *Store) Save(data *CookieData, domain string) error {
	logSession("Save: Saving %d cookies for domain=%s", len(data.Cookies), domain)

	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		logSession("Save: Failed to create directory: %v", err)
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if data.Domain == "" {
		data.Domain = domain
	}
	if data.CapturedAt == "" {
		data.CapturedAt = time.Now().Format(time.RFC3339)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		logSession("Save: JSON marshal failed: %v", err)
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Session cookies are credentials; keep them private to the user
	if err := os.WriteFile(s.path(domain), jsonData, 0600); err != nil {
		logSession("Save: File write failed: %v", err)
		return fmt.Errorf("failed to write file: %w", err)
	}

	logSession("Save: Successfully saved (%d bytes)", len(jsonData))
	logCookieData(domain, data)
	return nil
}

// Load reads the record for domain. It returns ErrNoCookies when nothing
// was stored.
func (s *Store) Load(domain string) (*CookieData, error) {
	filename := s.path(domain)

	jsonData, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			logSession("Load: No data file found for domain=%s", domain)
			return nil, fmt.Errorf("%w for domain: %s", ErrNoCookies, domain)
		}
		logSession("Load: File read failed: %v", err)
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var data CookieData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		logSession("Load: JSON unmarshal failed: %v", err)
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	logSession("Load: Successfully loaded (%d bytes)", len(jsonData))
	logCookieData(domain, &data)
	return &data, nil
}

// Validate checks that stored cookies are still usable.
func Validate(data *CookieData, now time.Time) error {
	var problems []string
	defer func() {
		domain := "unknown"
		if data != nil {
			domain = data.Domain
		}
		logValidation(domain, len(problems) == 0, problems)
	}()

	if data == nil {
		problems = append(problems, "cookie data is nil")
		return fmt.Errorf("cookie data is nil")
	}

	if age := data.Age(now); age > MaxCookieAge {
		msg := fmt.Sprintf("cookies are too old: %v (max: %v)", age.Round(time.Minute), MaxCookieAge)
		problems = append(problems, msg)
		return fmt.Errorf("%s", msg)
	}

	if len(data.HTTPCookies(now)) == 0 {
		msg := "no unexpired cookies stored"
		problems = append(problems, msg)
		return fmt.Errorf("%s", msg)
	}

	if data.FailedAt != "" {
		if failTime, err := time.Parse(time.RFC3339, data.FailedAt); err == nil {
			if since := now.Sub(failTime); since < failureCooldown {
				msg := fmt.Sprintf("cookies failed recently (%v ago), log in again", since.Round(time.Second))
				problems = append(problems, msg)
				return fmt.Errorf("%s", msg)
			}
		}
	}

	return nil
}

// MarkFailed records that the stored cookies for domain were rejected.
func (s *Store) MarkFailed(domain string) error {
	data, err := s.Load(domain)
	if err != nil {
		return err
	}

	data.FailedAt = time.Now().Format(time.RFC3339)
	logSession("MarkFailed: Set failure time=%s for domain=%s", data.FailedAt, domain)
	return s.Save(data, domain)
}

// List returns the domains that have stored cookies, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	domains := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			domains = append(domains, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(domains)

	logSession("List: Found %d stored domains", len(domains))
	return domains, nil
}

// Delete removes stored cookies for domain.
func (s *Store) Delete(domain string) error {
	if err := os.Remove(s.path(domain)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w for domain: %s", ErrNoCookies, domain)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logSession("Delete: Deleted data for domain=%s", domain)
	return nil
}
