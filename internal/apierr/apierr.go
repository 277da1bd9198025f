// Package apierr carries an HTTP status and a stable machine-readable
// code alongside the underlying error, so handlers can map service
// failures to responses without matching on message strings.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Errorf builds an Error around a formatted message.
func Errorf(status int, code string, format string, args ...any) *Error {
	return &Error{Status: status, Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		return http.StatusText(e.Status)
	default:
		return "api error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried somewhere in err's chain,
// or fallback when none is.
func StatusOf(err error, fallback int) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return fallback
}
