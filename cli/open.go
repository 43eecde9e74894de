package cli

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
)

// openFolder shows path in the platform file manager.
func openFolder(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux", "freebsd", "openbsd", "netbsd":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	log.Printf("[CLI] Opening folder: %s", path)
	return cmd.Start()
}
