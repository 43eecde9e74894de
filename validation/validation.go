package validation

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"mihiraki/models"
	"mihiraki/parser"
)

// MaxPages guards against a mistyped page count.
const MaxPages = 9999

// DownloadTask checks the fields of a download run and returns a copy with
// trailing slashes normalized and the output directory expanded.
func DownloadTask(task models.DownloadTask) (models.DownloadTask, error) {
	task.BaseURL = strings.TrimSpace(task.BaseURL)
	task.URLPathSegment = strings.TrimSpace(task.URLPathSegment)
	task.OutputDir = strings.TrimSpace(task.OutputDir)

	if task.BaseURL == "" {
		return task, errors.New("base URL is required")
	}
	if err := HTTPURL(task.BaseURL); err != nil {
		return task, fmt.Errorf("base URL: %w", err)
	}
	if task.URLPathSegment == "" {
		return task, errors.New("URL path is required")
	}
	if task.RemoteFilename == "" {
		return task, errors.New("remote filename is required")
	}
	if task.TotalPages <= 0 {
		return task, errors.New("total pages must be a positive number")
	}
	if task.TotalPages > MaxPages {
		return task, fmt.Errorf("total pages must be at most %d", MaxPages)
	}
	if task.OutputDir == "" {
		return task, errors.New("pages directory is required")
	}

	outDir, err := parser.ExpandPath(task.OutputDir)
	if err != nil {
		return task, fmt.Errorf("pages directory: %w", err)
	}

	task.BaseURL = withTrailingSlash(task.BaseURL)
	task.URLPathSegment = withTrailingSlash(strings.TrimLeft(task.URLPathSegment, "/"))
	task.OutputDir = outDir
	return task, nil
}

// ProcessingRun checks the directories of a processing run. The input
// directory must exist unless allowMissingInput is set, which is the case
// when a download into it runs first.
func ProcessingRun(run models.ProcessingRun, allowMissingInput bool) (models.ProcessingRun, error) {
	run.InputDir = strings.TrimSpace(run.InputDir)
	run.OutputDir = strings.TrimSpace(run.OutputDir)

	if run.InputDir == "" {
		return run, errors.New("pages directory is required")
	}
	if run.OutputDir == "" {
		return run, errors.New("spreads directory is required")
	}

	in, err := parser.ExpandPath(run.InputDir)
	if err != nil {
		return run, fmt.Errorf("pages directory: %w", err)
	}
	out, err := parser.ExpandPath(run.OutputDir)
	if err != nil {
		return run, fmt.Errorf("spreads directory: %w", err)
	}

	if filepath.Clean(in) == filepath.Clean(out) {
		return run, errors.New("pages and spreads directories must differ")
	}

	if !allowMissingInput {
		info, err := os.Stat(in)
		if err != nil {
			return run, fmt.Errorf("pages directory: %w", err)
		}
		if !info.IsDir() {
			return run, fmt.Errorf("pages directory %s is not a directory", in)
		}
	}

	run.InputDir = in
	run.OutputDir = out
	return run, nil
}

// HTTPURL checks that raw is an absolute http(s) URL with a host.
func HTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must start with http:// or https://", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
