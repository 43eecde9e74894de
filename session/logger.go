package session

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"mihiraki/config"
)

const debugLogFileName = "sessionDebug.log"

var (
	debugLogger *log.Logger
	debugFile   *config.RotatingFile
	debugMu     sync.Mutex
)

// InitDebugLogger starts the verbose cookie/session log in dir.
// Until it is called, session debug output is discarded.
func InitDebugLogger(dir string) error {
	rf, err := config.OpenRotatingFile(filepath.Join(dir, debugLogFileName))
	if err != nil {
		return err
	}

	debugMu.Lock()
	debugFile = rf
	debugLogger = log.New(rf, "", log.LstdFlags|log.Lmicroseconds)
	debugMu.Unlock()

	logSession("=== Session Debug Logger Initialized ===")
	return nil
}

// CloseDebugLogger closes the session debug log.
func CloseDebugLogger() {
	debugMu.Lock()
	defer debugMu.Unlock()

	if debugFile != nil {
		debugLogger.Printf("=== Session Debug Logger Closing ===")
		debugFile.Close()
		debugFile = nil
		debugLogger = nil
	}
}

func logSession(format string, args ...interface{}) {
	debugMu.Lock()
	defer debugMu.Unlock()

	if debugLogger == nil {
		return
	}
	debugLogger.Printf(format, args...)
}

// logCookieData logs a stored record without the cookie values.
func logCookieData(domain string, data *CookieData) {
	logSession("=== STORED COOKIES ===")
	logSession("  Domain: %s", domain)
	logSession("  Captured At: %s", data.CapturedAt)
	if age := data.Age(time.Now()); age >= 0 {
		logSession("  Age: %v", age.Round(time.Minute))
	}
	for i, c := range data.Cookies {
		state := "valid"
		if c.Expired(time.Now()) {
			state = "EXPIRED"
		}
		logSession("    [%d] %s (domain: %s, %s)", i+1, c.Name, c.Domain, state)
	}
	logSession("===")
}

func logImport(domain string, success bool, err error) {
	logSession("=== COOKIE IMPORT ===")
	logSession("  Domain: %s", domain)
	logSession("  Success: %v", success)
	if err != nil {
		logSession("  Error: %v", err)
	}
	logSession("===")
}

func logValidation(domain string, valid bool, problems []string) {
	logSession("=== COOKIE VALIDATION ===")
	logSession("  Domain: %s", domain)
	logSession("  Valid: %v", valid)
	for i, p := range problems {
		logSession("    [%d] %s", i+1, p)
	}
	logSession("===")
}
