package cli

import (
	"fmt"
	"log"

	"mihiraki/config"
	"mihiraki/models"
	"mihiraki/pipeline"
	"mihiraki/progress"
	"mihiraki/session"
	"mihiraki/validation"

	"github.com/spf13/cobra"
)

var (
	downloadFlags runFlags
	processFlags  runFlags
	runAllFlags   runFlags
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download every page of a document",
	Example: `  mihiraki download --base-url https://lib.example.org/viewer/ --url-path book42/ \
    --remote-filename scan.pdf --pages 120 --pages-dir ~/scans/book42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, &downloadFlags, true, false)
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Assemble downloaded pages into spreads",
	Example: `  mihiraki process --pages-dir ~/scans/book42 --spreads-dir ~/scans/book42-spreads`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, &processFlags, false, true)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download a document, then assemble its spreads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, &runAllFlags, true, true)
	},
}

func init() {
	downloadFlags.addDownloadFlags(downloadCmd.Flags())
	downloadFlags.addCommonFlags(downloadCmd.Flags())

	processFlags.addProcessFlags(processCmd.Flags())
	processFlags.addCommonFlags(processCmd.Flags())

	runAllFlags.addDownloadFlags(runCmd.Flags())
	runAllFlags.addProcessFlags(runCmd.Flags())
	runAllFlags.addCommonFlags(runCmd.Flags())

	rootCmd.AddCommand(downloadCmd, processCmd, runCmd)
}

func runPipeline(cmd *cobra.Command, flags *runFlags, download, process bool) error {
	stored, err := config.LoadSettings(configDir)
	if err != nil {
		log.Printf("[CLI] Using default settings: %v", err)
		warnf("Could not read settings: %v", err)
	}
	settings := flags.merge(cmd, stored)

	var task models.DownloadTask
	if download {
		task, err = validation.DownloadTask(settings.DownloadTask())
		if err != nil {
			return err
		}
		if settings.WarmupURL != "" {
			if err := validation.HTTPURL(settings.WarmupURL); err != nil {
				return fmt.Errorf("warm-up URL: %w", err)
			}
		}
	}

	var run models.ProcessingRun
	if process {
		run, err = validation.ProcessingRun(settings.ProcessingRun(), download)
		if err != nil {
			return err
		}
	}

	bar := newBarReporter()
	// Status lines also go to the run log so a failed run can be read back
	o := pipeline.New(progress.Multi(bar, progress.LogReporter{Prefix: "[Status]"}))
	if logFile != nil {
		o.LogPath = logFile.Path()
	}
	o.FetcherOptions = flags.fetcherOptions(o.FetcherOptions, settings.WarmupURL)
	if process {
		o.AssemblerOptions = flags.assemblerOptions()
	}

	if download && !flags.noCookies {
		o.CookieDomain = settings.CookieDomain
		if o.CookieDomain == "" {
			o.CookieDomain = session.HostOf(task.BaseURL)
		}
		if store, err := cookieStore(); err == nil {
			o.Cookies = store
		} else {
			log.Printf("[CLI] Cookie store unavailable: %v", err)
		}
	}

	ctx, stop := interruptible(o)
	defer stop()

	var rep pipeline.Report
	switch {
	case download && process:
		rep = o.DownloadAndProcess(ctx, task, run)
	case download:
		rep = o.Download(ctx, task)
	default:
		rep = o.Process(run)
	}
	bar.finish()

	if !flags.noSave && rep.Err == nil {
		if err := config.SaveSettings(configDir, settings); err != nil {
			log.Printf("[CLI] Could not save settings: %v", err)
		}
	}

	if flags.open && rep.Outcome != models.OutcomeFailure {
		folder := run.OutputDir
		if folder == "" {
			folder = task.OutputDir
		}
		if err := openFolder(folder); err != nil {
			warnf("Could not open %s: %v", folder, err)
		}
	}

	return printReport(rep)
}
