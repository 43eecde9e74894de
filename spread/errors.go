package spread

import (
	"errors"
	"fmt"
	"path/filepath"
)

// DecodeError is returned when an image cannot be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MergeError is returned when two pages could not be combined into a spread.
type MergeError struct {
	Left  string
	Right string
	Err   error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s + %s: %v", filepath.Base(e.Left), filepath.Base(e.Right), e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// IsDecodeError checks if an error is (or wraps) a DecodeError
func IsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	ok := errors.As(err, &de)
	return de, ok
}
