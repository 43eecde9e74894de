package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"mihiraki/models"
	"mihiraki/pipeline"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

const maxStatusWidth = 48

// barReporter shows pipeline progress as a terminal bar; status lines
// become the bar description.
type barReporter struct {
	bar *progressbar.ProgressBar
	max int
}

func newBarReporter() *barReporter {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	return &barReporter{bar: bar, max: -1}
}

func (b *barReporter) ReportStatus(message string) {
	b.bar.Describe(shorten(message, maxStatusWidth))
}

func (b *barReporter) ReportProgress(current, total int) {
	if total != b.max {
		b.bar.ChangeMax(total)
		b.max = total
	}
	_ = b.bar.Set(current)
}

func (b *barReporter) finish() {
	_ = b.bar.Finish()
	fmt.Fprintln(os.Stderr)
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return fmt.Sprintf("%-*s", n, s)
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// interruptible cancels o on the first interrupt and ctx on the second.
func interruptible(o *pipeline.Orchestrator) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		count := 0
		for range sigs {
			count++
			if count == 1 {
				warnf("Interrupt received, stopping after the current page (press again to abort)")
				o.Cancel()
				continue
			}
			cancel()
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		close(sigs)
		cancel()
	}
}

func successf(format string, args ...any) {
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("✗ %s\n", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func infof(format string, args ...any) {
	color.New(color.FgCyan).Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}

// printReport writes the final summary line and returns an error for a
// failed run so the exit code reflects it.
func printReport(rep pipeline.Report) error {
	switch rep.Outcome {
	case models.OutcomeSuccess:
		successf("%s", rep.Message)
	case models.OutcomePartial:
		warnf("%s", rep.Message)
	case models.OutcomeCancelled:
		warnf("%s", rep.Message)
	default:
		errorf("%s", rep.Message)
	}

	if rep.Fetch != nil && rep.Fetch.LoginRequired > 0 {
		infof("The server returned a login page for %d pages. Refresh cookies with `mihiraki cookies login` or `mihiraki cookies import`.", rep.Fetch.LoginRequired)
	}
	if logFile != nil && rep.Outcome != models.OutcomeSuccess {
		infof("Details in %s", logFile.Path())
	}

	if rep.Outcome == models.OutcomeFailure {
		if rep.Err != nil {
			return errReported{rep.Err}
		}
		return errReported{fmt.Errorf("%s", rep.Message)}
	}
	return nil
}
