package cli

import (
	"time"

	"mihiraki/config"
	"mihiraki/downloader"
	"mihiraki/spread"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlags are the options shared by download, process and run. Values
// that are not given on the command line come from settings.json.
type runFlags struct {
	settings config.Settings

	retries      int
	delay        time.Duration
	timeout      time.Duration
	skipExisting bool
	noCookies    bool

	threshold float64
	quality   int

	open   bool
	noSave bool
}

func (f *runFlags) addDownloadFlags(fs *pflag.FlagSet) {
	def := downloader.DefaultOptions()
	fs.StringVar(&f.settings.BaseURL, "base-url", "", "viewer base URL")
	fs.StringVar(&f.settings.URLPath, "url-path", "", "path segment identifying the document")
	fs.StringVar(&f.settings.RemoteFilename, "remote-filename", "", "file name encoded into each page URL")
	fs.IntVarP(&f.settings.TotalPages, "pages", "n", 0, "number of pages to download")
	fs.StringVar(&f.settings.WarmupURL, "warmup-url", "", "URL visited first so the server sets session cookies")
	fs.StringVar(&f.settings.CookieDomain, "cookie-domain", "", "domain of stored cookies to send (default: host of --base-url)")
	fs.IntVar(&f.retries, "retries", def.MaxRetries, "retries on HTTP 500/502/503/504 and timeouts")
	fs.DurationVar(&f.delay, "delay", def.RequestDelay, "pause between page requests")
	fs.DurationVar(&f.timeout, "timeout", def.ReadTimeout, "read timeout per request")
	fs.BoolVar(&f.skipExisting, "skip-existing", false, "do not download pages already on disk")
	fs.BoolVar(&f.noCookies, "no-cookies", false, "do not send stored cookies")
}

func (f *runFlags) addProcessFlags(fs *pflag.FlagSet) {
	def := spread.DefaultOptions()
	fs.StringVar(&f.settings.SpreadsDir, "spreads-dir", "", "directory for assembled spreads")
	fs.Float64Var(&f.threshold, "threshold", def.Threshold, "width/height ratio above which a page counts as a spread")
	fs.IntVar(&f.quality, "quality", def.JPEGQuality, "JPEG quality of merged spreads")
	fs.BoolVar(&f.open, "open", false, "open the output folder when done")
}

func (f *runFlags) addCommonFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.settings.PagesDir, "pages-dir", "", "directory for downloaded pages")
	fs.BoolVar(&f.noSave, "no-save", false, "do not remember these values in settings.json")
}

// merge overlays the flags the user set on stored.
func (f *runFlags) merge(cmd *cobra.Command, stored config.Settings) config.Settings {
	out := stored
	changed := cmd.Flags().Changed

	if changed("base-url") {
		out.BaseURL = f.settings.BaseURL
	}
	if changed("url-path") {
		out.URLPath = f.settings.URLPath
	}
	if changed("remote-filename") {
		out.RemoteFilename = f.settings.RemoteFilename
	}
	if changed("pages") {
		out.TotalPages = f.settings.TotalPages
	}
	if changed("warmup-url") {
		out.WarmupURL = f.settings.WarmupURL
	}
	if changed("cookie-domain") {
		out.CookieDomain = f.settings.CookieDomain
	}
	if changed("pages-dir") {
		out.PagesDir = f.settings.PagesDir
	}
	if changed("spreads-dir") {
		out.SpreadsDir = f.settings.SpreadsDir
	}
	return out
}

func (f *runFlags) fetcherOptions(base downloader.Options, warmupURL string) downloader.Options {
	base.MaxRetries = f.retries
	base.RequestDelay = f.delay
	base.ReadTimeout = f.timeout
	base.SkipExisting = f.skipExisting
	base.WarmupURL = warmupURL
	return base
}

func (f *runFlags) assemblerOptions() spread.Options {
	return spread.Options{Threshold: f.threshold, JPEGQuality: f.quality}
}
