package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"mihiraki/models"
)

// AppName names the configuration directory.
const AppName = "mihiraki"

// SettingsFileName is the settings file inside the configuration directory.
const SettingsFileName = "settings.json"

// Settings holds the last-used values of a download or processing run.
type Settings struct {
	BaseURL        string `json:"base_url"`
	URLPath        string `json:"url_path"`
	RemoteFilename string `json:"remote_filename"`
	TotalPages     int    `json:"total_pages"`
	PagesDir       string `json:"pages_dir"`
	SpreadsDir     string `json:"spreads_dir"`
	WarmupURL      string `json:"warmup_url"`
	CookieDomain   string `json:"cookie_domain"`
}

// DefaultSettings is written when no settings file exists yet.
func DefaultSettings() Settings {
	return Settings{
		PagesDir:   "~/mihiraki/pages",
		SpreadsDir: "~/mihiraki/spreads",
	}
}

// DownloadTask builds the Fetcher parameters from s.
func (s Settings) DownloadTask() models.DownloadTask {
	return models.DownloadTask{
		BaseURL:        s.BaseURL,
		URLPathSegment: s.URLPath,
		RemoteFilename: s.RemoteFilename,
		TotalPages:     s.TotalPages,
		OutputDir:      s.PagesDir,
	}
}

// ProcessingRun builds the Assembler parameters from s.
func (s Settings) ProcessingRun() models.ProcessingRun {
	return models.ProcessingRun{
		InputDir:  s.PagesDir,
		OutputDir: s.SpreadsDir,
	}
}

// Dir returns the configuration directory, creating it if needed. A
// non-empty override is used instead of ~/.config/mihiraki.
func Dir(override string) (string, error) {
	dir := override
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot find user config directory: %w", err)
		}
		dir = filepath.Join(configDir, AppName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	return dir, nil
}

// LoadSettings reads the settings file from dir (see Dir), writing a
// template first if it does not exist.
func LoadSettings(dir string) (Settings, error) {
	settingsFile, err := verifyConfigFiles(dir)
	if err != nil {
		return DefaultSettings(), err
	}

	file, err := os.Open(settingsFile)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("error opening settings file: %w", err)
	}
	defer file.Close()

	byteValues, err := io.ReadAll(file)
	if err != nil {
		return DefaultSettings(), fmt.Errorf("error reading settings file: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(byteValues, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("error parsing %s: %w", settingsFile, err)
	}
	return settings, nil
}

// SaveSettings writes s to the settings file in dir (see Dir).
func SaveSettings(dir string, s Settings) error {
	configDir, err := Dir(dir)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, SettingsFileName), jsonData, 0644)
}

// verifyConfigFiles makes sure the settings file exists and returns its path
func verifyConfigFiles(dir string) (string, error) {
	configDir, err := Dir(dir)
	if err != nil {
		return "", err
	}

	settingsFile := filepath.Join(configDir, SettingsFileName)

	_, err = os.Stat(settingsFile)
	if os.IsNotExist(err) {
		log.Printf("[Config] Settings file not found, creating template at '%s'", settingsFile)
		if saveErr := SaveSettings(configDir, DefaultSettings()); saveErr != nil {
			return "", fmt.Errorf("error creating settings file: %w", saveErr)
		}
	} else if err != nil {
		return "", fmt.Errorf("error checking file existence: %w", err)
	}

	return settingsFile, nil
}
