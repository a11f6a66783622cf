package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// Session tokens
	ErrInvalidSigningMethod = errors.New("invalid token signing method")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenNotYetValid     = errors.New("token not valid yet")
	ErrTokenNotFound        = errors.New("token not found")

	// Authorization
	ErrEmptyAuthHeader    = errors.New("authorization header is missing")
	ErrInvalidAuthHeader  = errors.New("invalid authorization header format")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied")
	ErrSessionExpired     = errors.New("session expired, please log in again")

	// Context
	ErrSessionIDNotFoundInContext = errors.New("session id not found in request context")

	// General
	ErrNotFound        = errors.New("record not found")
	ErrBadRequest      = errors.New("bad request")
	ErrInternalServer  = errors.New("internal server error")
	ErrBackendDown     = errors.New("backend unavailable")
	ErrUnknownResource = errors.New("unknown resource")
)

// HttpError carries a user-facing message and status code for the echo layer.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, ctx map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: ctx}
}

func NewBadRequestError(message string) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: message, Err: ErrBadRequest}
}

func NewForbiddenError(message string) *HttpError {
	return &HttpError{Code: http.StatusForbidden, Message: message, Err: ErrForbidden}
}

// BackendError is a non-2xx answer from the pharmacy REST backend. Body holds
// the raw payload so validation messages reach the caller untouched.
type BackendError struct {
	Status int
	Method string
	Path   string
	Body   json.RawMessage
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s %s returned %d", e.Method, e.Path, e.Status)
}

func (e *BackendError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	}
	if e.Status >= http.StatusInternalServerError {
		return ErrBackendDown
	}
	return nil
}

// Transient reports whether the failure is worth a single read retry.
func (e *BackendError) Transient() bool {
	return e.Status >= http.StatusInternalServerError
}

// Kept from the validation layer for explicit input problems.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
