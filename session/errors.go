package session

import (
	"errors"
	"fmt"
)

// ErrNoCookies is returned when a store lookup finds nothing for a domain.
var ErrNoCookies = errors.New("no stored cookies")

// LoginRequiredError is returned when the server answers with an HTML page
// (usually a login form) where an image was expected.
type LoginRequiredError struct {
	URL       string
	Title     string
	LoginForm bool
}

func (e *LoginRequiredError) Error() string {
	msg := "received an HTML page instead of an image"
	if e.Title != "" {
		msg += fmt.Sprintf(" (%q)", e.Title)
	}
	if e.LoginForm {
		msg += ", the server is asking for a login"
	}
	return msg + ": session expired or cookies invalid"
}

// IsLoginRequired checks if an error is a LoginRequiredError
func IsLoginRequired(err error) (*LoginRequiredError, bool) {
	var le *LoginRequiredError
	ok := errors.As(err, &le)
	return le, ok
}
