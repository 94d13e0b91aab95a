package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the API handlers.
const (
	CodeBadRequest          = "ERR_BAD_REQUEST"
	CodeNotFound            = "ERR_NOT_FOUND"
	CodeUnrecognizedPattern = "ERR_UNRECOGNIZED_PATTERN"
	CodeNotImplemented      = "ERR_NOT_IMPLEMENTED"
	CodeEmptySeries         = "ERR_EMPTY_SERIES"
	CodeSeriesNotFound      = "ERR_SERIES_NOT_FOUND"
	CodeRateLimited         = "ERR_RATE_LIMITED"
	CodeInternal            = "ERR_INTERNAL"
)

// AppError is an error that knows its HTTP status. Only Code, Message and
// Field reach the client.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap attaches the cause, kept out of the response body.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// Errorf builds an AppError with a formatted message.
func Errorf(status int, code, field, format string, a ...interface{}) *AppError {
	return &AppError{Code: code, Field: field, Status: status, Message: fmt.Sprintf(format, a...)}
}

// ErrorRule maps errors matching Target (via errors.Is) to a response.
type ErrorRule struct {
	Target error
	Status int
	Code   string
	Field  string
}

// ErrorMap is an ordered list of rules; the first match wins.
type ErrorMap []ErrorRule

// Resolve turns err into an AppError. Existing AppErrors pass through;
// unmatched errors become an opaque 500 that still wraps the cause.
func (m ErrorMap) Resolve(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, r := range m {
		if errors.Is(err, r.Target) {
			return (&AppError{Code: r.Code, Field: r.Field, Status: r.Status, Message: err.Error()}).Wrap(err)
		}
	}
	return Errorf(http.StatusInternalServerError, CodeInternal, "", "request failed").Wrap(err)
}
