package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"mihiraki/config"
	"mihiraki/downloader"
	"mihiraki/session"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	importFile      string
	importClipboard bool
	cookieDomain    string

	loginURL      string
	loginTimeout  time.Duration
	loginHeadless bool
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Manage stored session cookies",
}

var cookiesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import cookies exported from a browser",
	Long: `Import cookies exported from a browser, either a JSON array of cookies as
written by common cookie-export extensions or an object with "domain" and
"cookies" keys.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (importFile == "") == !importClipboard {
			return errors.New("use exactly one of --file or --clipboard")
		}

		store, err := cookieStore()
		if err != nil {
			return err
		}

		var domain string
		if importClipboard {
			domain, err = store.ImportFromClipboard(cookieDomain)
		} else {
			domain, err = store.ImportFromFile(importFile, cookieDomain)
		}
		if err != nil {
			return err
		}

		successf("Imported cookies for %s", domain)
		return nil
	},
}

var cookiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored cookies per domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cookieStore()
		if err != nil {
			return err
		}

		domains, err := store.List()
		if err != nil {
			return err
		}
		if len(domains) == 0 {
			infof("No stored cookies")
			return nil
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tCOOKIES\tAGE\tSTATUS")
		for _, domain := range domains {
			data, err := store.Load(domain)
			if err != nil {
				fmt.Fprintf(w, "%s\t-\t-\t%v\n", domain, err)
				continue
			}

			age := "unknown"
			if d := data.Age(now); d >= 0 {
				age = d.Round(time.Minute).String()
			}
			status := "ok"
			if err := session.Validate(data, now); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", domain, len(data.Cookies), age, status)
		}
		return w.Flush()
	},
}

var cookiesDeleteCmd = &cobra.Command{
	Use:   "delete <domain>",
	Short: "Delete stored cookies for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cookieStore()
		if err != nil {
			return err
		}
		if err := store.Delete(session.HostOf(args[0])); err != nil {
			return err
		}
		successf("Deleted cookies for %s", args[0])
		return nil
	},
}

var cookiesLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a browser window and store the session cookies",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := loginURL
		if target == "" {
			stored, err := config.LoadSettings(configDir)
			if err == nil {
				target = stored.WarmupURL
				if target == "" {
					target = stored.BaseURL
				}
			}
		}
		if target == "" {
			return errors.New("no URL to open: pass --url or set warmup_url in settings")
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for login in the browser window..."
		s.Writer = os.Stderr
		s.Start()

		data, err := downloader.BrowserLogin(context.Background(), downloader.LoginOptions{
			URL:      target,
			Timeout:  loginTimeout,
			Headless: loginHeadless,
		})
		s.Stop()
		if err != nil {
			return err
		}

		domain := cookieDomain
		if domain == "" {
			domain = data.Domain
		}
		data.Domain = domain

		store, err := cookieStore()
		if err != nil {
			return err
		}
		if err := store.Save(data, domain); err != nil {
			return err
		}

		successf("Stored %d cookies for %s", len(data.Cookies), domain)
		return nil
	},
}

func init() {
	cookiesImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file exported from the browser")
	cookiesImportCmd.Flags().BoolVar(&importClipboard, "clipboard", false, "read the export from the clipboard")
	cookiesImportCmd.Flags().StringVar(&cookieDomain, "domain", "", "domain to store the cookies under (default: taken from the export)")

	cookiesLoginCmd.Flags().StringVar(&loginURL, "url", "", "page to open (default: warmup_url from settings)")
	cookiesLoginCmd.Flags().StringVar(&cookieDomain, "domain", "", "domain to store the cookies under (default: host of --url)")
	cookiesLoginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the login")
	cookiesLoginCmd.Flags().BoolVar(&loginHeadless, "headless", false, "run the browser without a window")

	cookiesCmd.AddCommand(cookiesImportCmd, cookiesListCmd, cookiesDeleteCmd, cookiesLoginCmd)
	rootCmd.AddCommand(cookiesCmd)
}

// cookieStore returns the store inside the active configuration directory.
func cookieStore() (*session.Store, error) {
	if configDir == "" {
		return session.DefaultStore()
	}
	return &session.Store{Dir: filepath.Join(configDir, "cookies")}, nil
}
