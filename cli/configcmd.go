package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"mihiraki/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show stored settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print settings.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings(configDir)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration directory",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configDir)
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(configDir, config.SettingsFileName))
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(configDir, config.LogFileName))
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
