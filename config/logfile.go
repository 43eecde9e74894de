package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	maxLogSize  = 10 * 1024 * 1024 // 10MB
	maxLogFiles = 3                // Keep 3 backup files
	LogFileName = "mihiraki.log"
)

// RotatingFile is an append-only log file that is rotated to .1, .2, ...
// once it grows past its size limit.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

// OpenRotatingFile opens (or creates) path for appending, rotating first
// if it is already over the limit.
func OpenRotatingFile(path string) (*RotatingFile, error) {
	rf := &RotatingFile{
		path:       path,
		maxSize:    maxLogSize,
		maxBackups: maxLogFiles,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	if info, err := os.Stat(rf.path); err == nil {
		rf.size = info.Size()
		if rf.size >= rf.maxSize {
			if err := rf.rotate(); err != nil {
				return fmt.Errorf("failed to rotate logs: %w", err)
			}
		}
	}

	file, err := os.OpenFile(rf.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	rf.file = file
	return nil
}

// rotate shifts path.N to path.N+1, dropping the oldest, and moves the
// current file to path.1.
func (rf *RotatingFile) rotate() error {
	if rf.file != nil {
		rf.file.Close()
		rf.file = nil
	}

	os.Remove(fmt.Sprintf("%s.%d", rf.path, rf.maxBackups))
	for i := rf.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", rf.path, i), fmt.Sprintf("%s.%d", rf.path, i+1))
	}

	if err := os.Rename(rf.path, rf.path+".1"); err != nil && !os.IsNotExist(err) {
		return err
	}
	rf.size = 0
	return nil
}

// Write appends p, rotating afterwards if the size limit was reached.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	if err != nil {
		return n, err
	}

	if rf.size >= rf.maxSize {
		if err := rf.rotate(); err != nil {
			return n, err
		}
		if err := rf.open(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Path returns the active log file location.
func (rf *RotatingFile) Path() string {
	return rf.path
}

// Close closes the underlying file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// InitLogging sends the standard logger to stderr (when verbose) and to
// the rotating application log in dir. The returned file must be closed on
// exit.
func InitLogging(dir string, verbose bool) (*RotatingFile, error) {
	rf, err := OpenRotatingFile(filepath.Join(dir, LogFileName))
	if err != nil {
		return nil, err
	}

	var out io.Writer = rf
	if verbose {
		out = io.MultiWriter(os.Stderr, rf)
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	log.Printf("[Config] === mihiraki %s (%s) started ===", Version, GitCommit)
	return rf, nil
}
