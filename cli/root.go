package cli

import (
	"errors"
	"fmt"
	"log"

	"mihiraki/config"
	"mihiraki/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
	noColor   bool

	// logFile is the open application log, set by PersistentPreRunE
	logFile *config.RotatingFile
)

var rootCmd = &cobra.Command{
	Use:   "mihiraki",
	Short: "Download library page scans and assemble them into reading spreads",
	Long: `mihiraki downloads the pages of a scanned document from a library viewer,
one image per page, and pairs consecutive single pages into two-page spreads
the way the printed book opens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		dir, err := config.Dir(configDir)
		if err != nil {
			return err
		}
		configDir = dir

		logFile, err = config.InitLogging(dir, verbose)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		if err := session.InitDebugLogger(dir); err != nil {
			log.Printf("[CLI] Session debug log disabled: %v", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		session.CloseDebugLogger()
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.config/mihiraki)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also print the log to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.Version = config.VersionString()
}

// errReported marks an error whose summary was already printed.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.As(err, new(errReported)) {
		errorf("%v", err)
	}
	return err
}
