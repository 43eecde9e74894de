package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsCreatesTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	settings, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
	assert.FileExists(t, filepath.Join(dir, SettingsFileName))
}

func TestSaveAndLoadSettings(t *testing.T) {
	dir := t.TempDir()
	want := Settings{
		BaseURL:        "https://lib.example.org/viewer/",
		URLPath:        "doc/",
		RemoteFilename: "scan.pdf",
		TotalPages:     42,
		PagesDir:       "/tmp/pages",
		SpreadsDir:     "/tmp/spreads",
		WarmupURL:      "https://lib.example.org/",
		CookieDomain:   "lib.example.org",
	}

	require.NoError(t, SaveSettings(dir, want))
	got, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	task := got.DownloadTask()
	assert.Equal(t, "doc/", task.URLPathSegment)
	assert.Equal(t, 42, task.TotalPages)
	assert.Equal(t, "/tmp/pages", task.OutputDir)

	run := got.ProcessingRun()
	assert.Equal(t, "/tmp/pages", run.InputDir)
	assert.Equal(t, "/tmp/spreads", run.OutputDir)
}

func TestLoadSettingsKeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(`{"total_pages": 7}`), 0644))

	got, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, got.TotalPages)
	assert.Equal(t, DefaultSettings().PagesDir, got.PagesDir)
}

func TestLoadSettingsBadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(`{nope`), 0644))

	got, err := LoadSettings(dir)
	assert.Error(t, err)
	assert.Equal(t, DefaultSettings(), got)
}
