package pipeline

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a run is requested while another is active.
var ErrBusy = errors.New("another run is already in progress")

// CriticalError wraps a panic caught at the pipeline boundary.
type CriticalError struct {
	Stage string
	Value any
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical error during %s: %v", e.Stage, e.Value)
}

// IsCritical checks if an error is a CriticalError
func IsCritical(err error) (*CriticalError, bool) {
	var ce *CriticalError
	ok := errors.As(err, &ce)
	return ce, ok
}
