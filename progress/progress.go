package progress

import (
	"log"
	"sync/atomic"
)

// Reporter receives status lines and progress updates from a pipeline.
// Implementations must not block for long; return values never influence
// the pipeline.
type Reporter interface {
	// ReportStatus receives a human-readable status line
	ReportStatus(message string)

	// ReportProgress is called after every unit of work
	ReportProgress(current, total int)
}

// Canceller is polled by the pipelines at iteration boundaries.
type Canceller interface {
	IsCancelled() bool
}

// Flag is the shared cancellation signal. The zero value is not cancelled.
// It is safe to call Cancel from any goroutine while a pipeline runs.
type Flag struct {
	cancelled atomic.Bool
}

// NewFlag returns a cleared cancellation flag.
func NewFlag() *Flag {
	return &Flag{}
}

// Cancel requests a cooperative stop.
func (f *Flag) Cancel() {
	if f == nil {
		return
	}
	f.cancelled.Store(true)
}

// Reset clears the flag before a new pipeline invocation.
func (f *Flag) Reset() {
	if f == nil {
		return
	}
	f.cancelled.Store(false)
}

// IsCancelled reports whether Cancel was called since the last Reset.
// A nil flag is never cancelled.
func (f *Flag) IsCancelled() bool {
	if f == nil {
		return false
	}
	return f.cancelled.Load()
}

// Funcs adapts plain functions to the Reporter interface.
// Nil fields are skipped.
type Funcs struct {
	Status   func(message string)
	Progress func(current, total int)
}

func (f Funcs) ReportStatus(message string) {
	if f.Status != nil {
		f.Status(message)
	}
}

func (f Funcs) ReportProgress(current, total int) {
	if f.Progress != nil {
		f.Progress(current, total)
	}
}

// Nop discards everything.
var Nop Reporter = Funcs{}

// LogReporter writes status lines to the standard logger with a prefix.
type LogReporter struct {
	Prefix string
}

func (l LogReporter) ReportStatus(message string) {
	log.Printf("%s %s", l.Prefix, message)
}

func (l LogReporter) ReportProgress(current, total int) {}

// Multi fans a report out to several reporters in order.
func Multi(reporters ...Reporter) Reporter {
	return multi(reporters)
}

type multi []Reporter

func (m multi) ReportStatus(message string) {
	for _, r := range m {
		if r != nil {
			r.ReportStatus(message)
		}
	}
}

func (m multi) ReportProgress(current, total int) {
	for _, r := range m {
		if r != nil {
			r.ReportProgress(current, total)
		}
	}
}

// Recorder keeps every report in memory. Tests use it to assert on
// the sequence of status lines and progress calls.
type Recorder struct {
	Statuses []string
	Steps    [][2]int
}

func (r *Recorder) ReportStatus(message string) {
	r.Statuses = append(r.Statuses, message)
}

func (r *Recorder) ReportProgress(current, total int) {
	r.Steps = append(r.Steps, [2]int{current, total})
}
