package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status a handler should answer with.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, errors.New(message))
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, errors.New(message))
}

func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, errors.New(message))
}

func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, errors.New(message))
}

// StatusOf returns the status attached to err, or fallback.
func StatusOf(err error, fallback int) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}
	return fallback
}
