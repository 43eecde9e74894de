package downloader

import (
	"errors"
	"fmt"
)

// HTTPError is returned when a page request ends with a non-2xx status
// after any retries.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("HTTP error %d for %s", e.StatusCode, e.URL)
	if e.StatusCode == 401 || e.StatusCode == 403 {
		msg += " (session expired or cookies invalid)"
	}
	return msg
}

// TimeoutError is returned when every attempt for a page timed out.
type TimeoutError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %d attempts for %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// NetworkError covers connection and request failures that are not
// timeouts.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IOError is returned when a downloaded page cannot be written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// EncodeError is returned when a page URL cannot be built.
type EncodeError struct {
	Index int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode URL for page %d: %v", e.Index, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// IsHTTPError checks if an error is an HTTPError
func IsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// IsTimeout checks if an error is a TimeoutError
func IsTimeout(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	ok := errors.As(err, &te)
	return te, ok
}
