package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ErrorMapping ties a sentinel error to the status and code it renders as.
type ErrorMapping struct {
	Target error
	Status int
	Code   string
}

// Classify resolves err to an AppError. An AppError anywhere in the chain wins, then the first
// mapping whose Target matches. The message of a mapped error is err.Error().
func Classify(err error, mappings ...ErrorMapping) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		out := *appErr
		if out.HTTPStatus == 0 {
			out.HTTPStatus = http.StatusBadRequest
		}
		if out.Code == "" {
			out.Code = "BAD_REQUEST"
		}
		if out.Message == "" {
			out.Message = err.Error()
		}
		return &out, true
	}
	for _, m := range mappings {
		if errors.Is(err, m.Target) {
			return &AppError{Code: m.Code, Message: err.Error(), HTTPStatus: m.Status, Err: err}, true
		}
	}
	return nil, false
}

// WriteError renders err in the canonical error shape. Unclassified errors become a 500 whose
// message does not leak internals.
func WriteError(w http.ResponseWriter, err error, mappings ...ErrorMapping) {
	if appErr, ok := Classify(err, mappings...); ok {
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
