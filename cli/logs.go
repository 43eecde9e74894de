package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mihiraki/config"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

var (
	followLogs bool
	logLines   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print or follow the application log",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(configDir, config.LogFileName)

		if err := printLastLines(cmd.OutOrStdout(), path, logLines); err != nil {
			return err
		}
		if !followLogs {
			return nil
		}

		t, err := tail.TailFile(path, tail.Config{
			Follow:    true,
			ReOpen:    true,
			MustExist: true,
			Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			return fmt.Errorf("cannot follow %s: %w", path, err)
		}
		defer t.Cleanup()

		for line := range t.Lines {
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line.Text)
		}
		return t.Err()
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&followLogs, "follow", "f", false, "keep printing new lines")
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 50, "number of lines to print first")
	rootCmd.AddCommand(logsCmd)
}

// printLastLines writes the last n lines of path to w.
func printLastLines(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open log: %w", err)
	}
	defer file.Close()

	var ring []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring = append(ring, scanner.Text())
		if len(ring) > n {
			ring = ring[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, line := range ring {
		fmt.Fprintln(w, line)
	}
	return nil
}
